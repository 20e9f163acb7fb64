package render

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/sprites/handle"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

const textureFormat = core1_0.FormatR8G8B8A8SRGB

// Texture is a sampled GPU image split into a grid of equally sized cells.
type Texture struct {
	Name    string
	Width   int
	Height  int
	Columns int
	Rows    int

	image *Image
}

// View is the shader-read-only view sampled by sprites using this texture.
func (t *Texture) View() core1_0.ImageView {
	if t.image == nil {
		return core1_0.ImageView{}
	}
	return t.image.View
}

type TextureHandle = handle.Handle[*Texture]

// TextureRequest names one image file of a LoadTextures batch.
type TextureRequest struct {
	Path    string
	Columns int
	Rows    int
}

type textureUploader interface {
	uploadTexture(pixels []byte, width, height int) (*Image, error)
}

// TextureStore owns every loaded texture. It is not safe for concurrent use;
// LoadTextures parallelises decoding internally.
type TextureStore struct {
	uploader textureUploader
	textures *handle.Registry[*Texture]
	// creation order, for teardown
	order   []TextureHandle
	version uint64

	release func(*Texture)
}

func newTextureStore(uploader textureUploader, capacity int) *TextureStore {
	return &TextureStore{
		uploader: uploader,
		textures: handle.NewRegistry[*Texture](capacity),
		release: func(t *Texture) {
			t.image.Destroy()
		},
	}
}

// LoadTexture decodes the image file at path and uploads it as a texture with
// a columns x rows atlas grid.
func (s *TextureStore) LoadTexture(path string, columns, rows int) (TextureHandle, error) {
	pixels, err := decodeImageFile(path)
	if err != nil {
		return TextureHandle{}, err
	}
	return s.add(path, pixels, columns, rows)
}

// LoadTextureImage uploads an already decoded image.
func (s *TextureStore) LoadTextureImage(name string, img image.Image, columns, rows int) (TextureHandle, error) {
	return s.add(name, toNRGBA(img), columns, rows)
}

// LoadTextures decodes every request concurrently, then uploads them in
// request order. On error nothing from the batch stays loaded.
func (s *TextureStore) LoadTextures(requests []TextureRequest) ([]TextureHandle, error) {
	decoded := make([]*image.NRGBA, len(requests))

	var group errgroup.Group
	for i, request := range requests {
		i, path := i, request.Path
		group.Go(func() error {
			pixels, err := decodeImageFile(path)
			if err != nil {
				return err
			}
			decoded[i] = pixels
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	handles := make([]TextureHandle, 0, len(requests))
	for i, request := range requests {
		h, err := s.add(request.Path, decoded[i], request.Columns, request.Rows)
		if err != nil {
			for _, loaded := range handles {
				s.Remove(loaded)
			}
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func (s *TextureStore) add(name string, pixels *image.NRGBA, columns, rows int) (TextureHandle, error) {
	if columns < 1 || rows < 1 {
		return TextureHandle{}, errors.AssertionFailedf("texture %s: atlas grid %dx%d must be at least 1x1", name, columns, rows)
	}
	if capacity := s.textures.Capacity(); capacity > 0 && s.textures.Len() >= capacity {
		return TextureHandle{}, errors.Mark(
			errors.AssertionFailedf("texture %s: store holds at most %d textures", name, capacity),
			handle.ErrCapacity)
	}

	size := pixels.Rect.Size()
	img, err := s.uploader.uploadTexture(pixels.Pix, size.X, size.Y)
	if err != nil {
		return TextureHandle{}, errors.Wrapf(err, "upload texture %s", name)
	}

	texture := &Texture{
		Name:    name,
		Width:   size.X,
		Height:  size.Y,
		Columns: columns,
		Rows:    rows,
		image:   img,
	}

	h, err := s.textures.Insert(texture)
	if err != nil {
		s.release(texture)
		return TextureHandle{}, err
	}

	s.order = append(s.order, h)
	s.version++
	return h, nil
}

// Get returns the texture for h, or false if h is stale.
func (s *TextureStore) Get(h TextureHandle) (*Texture, bool) {
	return s.textures.Get(h)
}

func (s *TextureStore) Len() int {
	return s.textures.Len()
}

// Subregion returns the UV transform selecting cell index of the texture's
// atlas grid.
func (s *TextureStore) Subregion(h TextureHandle, index int) (mgl32.Mat3, error) {
	texture, ok := s.textures.Get(h)
	if !ok {
		return mgl32.Mat3{}, errors.AssertionFailedf("subregion of unknown texture %s", h)
	}
	return SubregionTransform(texture.Columns, texture.Rows, index)
}

// Remove destroys the texture for h. The caller must make sure no frame in
// flight still samples it.
func (s *TextureStore) Remove(h TextureHandle) bool {
	texture, ok := s.textures.Remove(h)
	if !ok {
		return false
	}

	for i, candidate := range s.order {
		if candidate == h {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	s.release(texture)
	s.version++
	return true
}

// UnloadAll destroys every texture in reverse creation order. Calling it
// again is a no-op.
func (s *TextureStore) UnloadAll() {
	if len(s.order) == 0 {
		return
	}

	for i := len(s.order) - 1; i >= 0; i-- {
		texture, ok := s.textures.Remove(s.order[i])
		if ok {
			s.release(texture)
		}
	}
	s.order = nil
	s.version++
}

func (s *TextureStore) each(fn func(TextureHandle, *Texture)) {
	s.textures.Each(func(h TextureHandle, t *Texture) bool {
		fn(h, t)
		return true
	})
}

func decodeImageFile(path string) (*image.NRGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "open texture %s", path), ErrAssetLoad)
	}
	defer file.Close()

	decoded, format, err := image.Decode(file)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "decode texture %s", path), ErrAssetLoad)
	}

	bounds := decoded.Bounds()
	if bounds.Empty() {
		return nil, errors.Mark(errors.Newf("texture %s (%s) has no pixels", path, format), ErrAssetLoad)
	}

	return toNRGBA(decoded), nil
}

// toNRGBA converts img to tightly packed, non-premultiplied 8-bit RGBA with
// its origin at (0, 0).
func toNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	if nrgba, ok := img.(*image.NRGBA); ok && bounds.Min == (image.Point{}) && nrgba.Stride == 4*bounds.Dx() {
		return nrgba
	}

	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	return out
}

func (a *Allocator) uploadTexture(pixels []byte, width, height int) (*Image, error) {
	img, err := a.CreateImage(width, height, textureFormat, core1_0.ImageTilingOptimal,
		core1_0.ImageUsageTransferDst|core1_0.ImageUsageSampled, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}

	err = a.TransitionImageLayout(img.Image, textureFormat, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
	if err != nil {
		img.Destroy()
		return nil, err
	}

	err = a.UploadImage(pixels, img)
	if err != nil {
		img.Destroy()
		return nil, err
	}

	err = a.TransitionImageLayout(img.Image, textureFormat, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal)
	if err != nil {
		img.Destroy()
		return nil, err
	}

	err = a.CreateImageView(img, core1_0.ImageAspectColor)
	if err != nil {
		img.Destroy()
		return nil, err
	}

	return img, nil
}
