package render

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func createDescriptorSetLayout(device core1_0.DeviceDriver) (core1_0.DescriptorSetLayout, error) {
	layout, _, err := device.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,

				StageFlags: core1_0.StageVertex,
			},
			{
				Binding:         1,
				DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,

				StageFlags: core1_0.StageFragment,
			},
		},
	})
	if err != nil {
		return core1_0.DescriptorSetLayout{}, errors.Wrap(err, "create descriptor set layout")
	}
	return layout, nil
}

// createSampler builds the pixel-art sampler shared by every texture.
func createSampler(device core1_0.DeviceDriver, maxAnisotropy float32) (core1_0.Sampler, error) {
	sampler, _, err := device.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:    core1_0.FilterNearest,
		MinFilter:    core1_0.FilterNearest,
		AddressModeU: core1_0.SamplerAddressModeClampToBorder,
		AddressModeV: core1_0.SamplerAddressModeClampToBorder,
		AddressModeW: core1_0.SamplerAddressModeClampToBorder,

		AnisotropyEnable: true,
		MaxAnisotropy:    maxAnisotropy,

		BorderColor: core1_0.BorderColorIntTransparentBlack,

		MipmapMode: core1_0.SamplerMipmapModeNearest,
		MinLod:     0,
		MaxLod:     0,
	})
	if err != nil {
		return core1_0.Sampler{}, errors.Wrap(err, "create sampler")
	}
	return sampler, nil
}

// descriptorTable holds one descriptor set per (swapchain image, texture
// slot) pair. Slots without a live texture hold an uninitialized set.
type descriptorTable struct {
	device core1_0.DeviceDriver
	pool   core1_0.DescriptorPool
	sets   [][]core1_0.DescriptorSet
	// texture store version the sets were written for
	version uint64
}

func (t *descriptorTable) lookup(image, textureSlot int) (core1_0.DescriptorSet, bool) {
	if t == nil || image < 0 || image >= len(t.sets) {
		return core1_0.DescriptorSet{}, false
	}
	row := t.sets[image]
	if textureSlot < 0 || textureSlot >= len(row) || !row[textureSlot].Initialized() {
		return core1_0.DescriptorSet{}, false
	}
	return row[textureSlot], true
}

func (t *descriptorTable) destroy() {
	if t == nil || t.device == nil {
		return
	}
	if t.pool.Initialized() {
		// sets are freed with their pool
		t.device.DestroyDescriptorPool(t.pool, nil)
		t.pool = core1_0.DescriptorPool{}
	}
	t.sets = nil
}

type descriptorSource struct {
	layout   core1_0.DescriptorSetLayout
	sampler  core1_0.Sampler
	uniforms []*Buffer
	textures *TextureStore
}

func buildDescriptorTable(device core1_0.DeviceDriver, source descriptorSource) (*descriptorTable, error) {
	type slotView struct {
		slot int
		view core1_0.ImageView
	}

	var live []slotView
	slots := 0
	source.textures.each(func(h TextureHandle, texture *Texture) {
		live = append(live, slotView{slot: h.Index(), view: texture.View()})
		if h.Index()+1 > slots {
			slots = h.Index() + 1
		}
	})

	images := len(source.uniforms)
	table := &descriptorTable{
		device:  device,
		sets:    make([][]core1_0.DescriptorSet, images),
		version: source.textures.version,
	}
	for i := range table.sets {
		table.sets[i] = make([]core1_0.DescriptorSet, slots)
	}

	setCount := images * len(live)
	if setCount == 0 {
		// nothing to bind yet; keep a pool so lookups and teardown stay uniform
		setCount = 1
	}

	var err error
	table.pool, _, err = device.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: setCount,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: setCount,
			},
			{
				Type:            core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: setCount,
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create descriptor pool")
	}

	if len(live) == 0 {
		return table, nil
	}

	for image, uniform := range source.uniforms {
		allocLayouts := make([]core1_0.DescriptorSetLayout, len(live))
		for i := range allocLayouts {
			allocLayouts[i] = source.layout
		}

		sets, _, err := device.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
			DescriptorPool: table.pool,
			SetLayouts:     allocLayouts,
		})
		if err != nil {
			table.destroy()
			return nil, errors.Wrapf(err, "allocate descriptor sets for swapchain image %d", image)
		}

		writes := make([]core1_0.WriteDescriptorSet, 0, 2*len(live))
		for i, texture := range live {
			table.sets[image][texture.slot] = sets[i]

			writes = append(writes,
				core1_0.WriteDescriptorSet{
					DstSet:          sets[i],
					DstBinding:      0,
					DstArrayElement: 0,

					DescriptorType: core1_0.DescriptorTypeUniformBuffer,

					BufferInfo: []core1_0.DescriptorBufferInfo{
						{
							Buffer: uniform.Buffer,
							Offset: 0,
							Range:  uniformBlockSize,
						},
					},
				},
				core1_0.WriteDescriptorSet{
					DstSet:          sets[i],
					DstBinding:      1,
					DstArrayElement: 0,

					DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,

					ImageInfo: []core1_0.DescriptorImageInfo{
						{
							ImageView:   texture.view,
							Sampler:     source.sampler,
							ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
						},
					},
				},
			)
		}

		err = device.UpdateDescriptorSets(writes, nil)
		if err != nil {
			table.destroy()
			return nil, errors.Wrap(err, "write descriptor sets")
		}
	}

	return table, nil
}
