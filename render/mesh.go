package render

import (
	"embed"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
)

//go:embed meshes
var meshFiles embed.FS

type mesh struct {
	vertices []Vertex
	indices  []uint32
}

func (m *mesh) addVertex(decoder *obj.Decoder, uniqueVertices map[int]uint32, face obj.Face, faceIndex int) {
	vertInd := face.Vertices[faceIndex]
	index, vertexExists := uniqueVertices[vertInd]

	if !vertexExists {
		vert := Vertex{Position: mgl32.Vec3{
			decoder.Vertices[vertInd*3],
			decoder.Vertices[vertInd*3+1],
			decoder.Vertices[vertInd*3+2],
		}}

		uvInd := face.Uvs[faceIndex]
		vert.TexCoord = mgl32.Vec2{
			decoder.Uvs[uvInd*2],
			1.0 - decoder.Uvs[uvInd*2+1],
		}

		index = uint32(len(m.vertices))
		m.vertices = append(m.vertices, vert)
		uniqueVertices[vertInd] = index
	}

	m.indices = append(m.indices, index)
}

func loadQuadMesh() (*mesh, error) {
	meshFile, err := meshFiles.Open("meshes/quad.obj")
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "open quad mesh"), ErrAssetLoad)
	}
	defer meshFile.Close()

	matFile, err := meshFiles.Open("meshes/quad.mtl")
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "open quad material"), ErrAssetLoad)
	}
	defer matFile.Close()

	decoder, err := obj.DecodeReader(meshFile, matFile)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode quad mesh"), ErrAssetLoad)
	}

	m := &mesh{}
	uniqueVertices := make(map[int]uint32)

	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			if len(face.Uvs) < len(face.Vertices) {
				return nil, errors.Mark(errors.New("quad mesh face is missing texture coordinates"), ErrAssetLoad)
			}
			// triangle fan
			for i := 2; i < len(face.Vertices); i++ {
				m.addVertex(decoder, uniqueVertices, face, 0)
				m.addVertex(decoder, uniqueVertices, face, i-1)
				m.addVertex(decoder, uniqueVertices, face, i)
			}
		}
	}

	if len(m.indices) == 0 {
		return nil, errors.Mark(errors.New("quad mesh has no faces"), ErrAssetLoad)
	}
	return m, nil
}
