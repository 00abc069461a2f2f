// Package gltfdoc provides shared glTF 2.0 document-building helpers on
// top of github.com/qmuntal/gltf: raw buffer/accessor construction, the
// sparse-UV encoding spec.md §4.6 calls for (which qmuntal/gltf's modeler
// helpers don't cover), and the shared texture sampler/material
// boilerplate used by MESH-TRANSCODER. Patterned on the manual
// buffer/bufferView bookkeeping in flywave-go-mst's mst_to_gltf.go and the
// document layout used by lanern-go's gltfwriter.go.
package gltfdoc

import (
	"encoding/binary"
	"math"

	"github.com/qmuntal/gltf"
)

// New returns a glTF document with one scene and one empty binary buffer.
// It adds no sampler; Builder.SharedSampler creates one on first use.
func New() *gltf.Document {
	doc := &gltf.Document{}
	doc.Asset.Version = "2.0"
	doc.Asset.Generator = "cvrextract"
	doc.Scene = gltf.Index(0)
	doc.Scenes = append(doc.Scenes, &gltf.Scene{})
	doc.Buffers = append(doc.Buffers, &gltf.Buffer{})
	return doc
}

// Builder accumulates bytes into a glTF document's single binary buffer,
// handing back bufferView/accessor indices as it goes.
type Builder struct {
	Doc *gltf.Document
}

// NewBuilder wraps doc for incremental construction.
func NewBuilder(doc *gltf.Document) *Builder {
	return &Builder{Doc: doc}
}

// addBufferView appends data (4-byte aligned) to the shared buffer and
// returns a new bufferView index covering exactly those bytes.
func (b *Builder) addBufferView(data []byte, target gltf.Target) uint32 {
	buf := b.Doc.Buffers[0]
	// Pad to a 4-byte boundary so multi-byte accessor reads stay aligned.
	if pad := len(buf.Data) % 4; pad != 0 {
		buf.Data = append(buf.Data, make([]byte, 4-pad)...)
	}
	offset := uint32(len(buf.Data))
	buf.Data = append(buf.Data, data...)
	buf.ByteLength = uint32(len(buf.Data))

	bv := &gltf.BufferView{
		Buffer:     0,
		ByteOffset: offset,
		ByteLength: uint32(len(data)),
	}
	if target != 0 {
		bv.Target = target
	}
	idx := uint32(len(b.Doc.BufferViews))
	b.Doc.BufferViews = append(b.Doc.BufferViews, bv)
	return idx
}

func (b *Builder) addAccessor(a *gltf.Accessor) uint32 {
	idx := uint32(len(b.Doc.Accessors))
	b.Doc.Accessors = append(b.Doc.Accessors, a)
	return idx
}

// WritePositions writes a VEC3 FLOAT accessor with Min/Max populated, as
// glTF requires for the POSITION attribute.
func (b *Builder) WritePositions(data [][3]float32) uint32 {
	buf := packVec3(data)
	bv := b.addBufferView(buf, gltf.TargetArrayBuffer)

	min, max := [3]float32{}, [3]float32{}
	if len(data) > 0 {
		min, max = data[0], data[0]
		for _, v := range data[1:] {
			for i := 0; i < 3; i++ {
				if v[i] < min[i] {
					min[i] = v[i]
				}
				if v[i] > max[i] {
					max[i] = v[i]
				}
			}
		}
	}

	return b.addAccessor(&gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentFloat,
		Type:          gltf.AccessorVec3,
		Count:         uint32(len(data)),
		Min:           min[:],
		Max:           max[:],
	})
}

// WriteNormals writes a VEC3 FLOAT accessor (no Min/Max requirement).
func (b *Builder) WriteNormals(data [][3]float32) uint32 {
	bv := b.addBufferView(packVec3(data), gltf.TargetArrayBuffer)
	return b.addAccessor(&gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentFloat,
		Type:          gltf.AccessorVec3,
		Count:         uint32(len(data)),
	})
}

// WriteWeights writes a VEC4 FLOAT accessor for skin weights.
func (b *Builder) WriteWeights(data [][4]float32) uint32 {
	bv := b.addBufferView(packVec4(data), gltf.TargetArrayBuffer)
	return b.addAccessor(&gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentFloat,
		Type:          gltf.AccessorVec4,
		Count:         uint32(len(data)),
	})
}

// WriteJointsUint32 writes a VEC4 UNSIGNED_INT accessor for skin joint
// indices. Standard glTF expects UNSIGNED_BYTE/UNSIGNED_SHORT here; this
// module preserves the source's UNSIGNED_INT width (spec.md §4.6, flagged
// in §9 as a deliberate non-standard deviation).
func (b *Builder) WriteJointsUint32(data [][4]uint32) uint32 {
	buf := make([]byte, 0, len(data)*16)
	for _, v := range data {
		for _, c := range v {
			buf = binary.LittleEndian.AppendUint32(buf, c)
		}
	}
	bv := b.addBufferView(buf, gltf.TargetArrayBuffer)
	return b.addAccessor(&gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentUint,
		Type:          gltf.AccessorVec4,
		Count:         uint32(len(data)),
	})
}

// WriteIndicesUint32 writes a SCALAR UNSIGNED_INT index accessor.
func (b *Builder) WriteIndicesUint32(data []uint32) uint32 {
	buf := make([]byte, 0, len(data)*4)
	for _, v := range data {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	bv := b.addBufferView(buf, gltf.TargetElementArrayBuffer)
	return b.addAccessor(&gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentUint,
		Type:          gltf.AccessorScalar,
		Count:         uint32(len(data)),
	})
}

// WriteMat4s writes a MAT4 FLOAT accessor (used for inverse-bind matrices).
func (b *Builder) WriteMat4s(data [][16]float32) uint32 {
	buf := make([]byte, 0, len(data)*64)
	for _, m := range data {
		for _, c := range m {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(c))
		}
	}
	bv := b.addBufferView(buf, 0)
	return b.addAccessor(&gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentFloat,
		Type:          gltf.AccessorMat4,
		Count:         uint32(len(data)),
	})
}

// WriteScalarFloats writes a SCALAR FLOAT accessor (animation sampler
// inputs/outputs, e.g. keyframe times).
func (b *Builder) WriteScalarFloats(data []float32) uint32 {
	buf := make([]byte, 0, len(data)*4)
	for _, v := range data {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	bv := b.addBufferView(buf, 0)
	return b.addAccessor(&gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentFloat,
		Type:          gltf.AccessorScalar,
		Count:         uint32(len(data)),
	})
}

// WriteVec3Floats writes a VEC3 FLOAT accessor for arbitrary (non-position)
// data, e.g. animation translation outputs.
func (b *Builder) WriteVec3Floats(data [][3]float32) uint32 {
	bv := b.addBufferView(packVec3(data), 0)
	return b.addAccessor(&gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentFloat,
		Type:          gltf.AccessorVec3,
		Count:         uint32(len(data)),
	})
}

// WriteVec4Floats writes a VEC4 FLOAT accessor, e.g. animation rotation
// (quaternion) outputs.
func (b *Builder) WriteVec4Floats(data [][4]float32) uint32 {
	bv := b.addBufferView(packVec4(data), 0)
	return b.addAccessor(&gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentFloat,
		Type:          gltf.AccessorVec4,
		Count:         uint32(len(data)),
	})
}

// WriteSparseUVAccessor builds the per-strip UV accessor described in
// spec.md §4.6/§9: a VEC2 FLOAT accessor whose dense Count equals nverts,
// overridden at sparseIndices by sparseUVs. The base accessor carries no
// bufferView (all-zero dense view); only the override is materialized.
func (b *Builder) WriteSparseUVAccessor(nverts uint32, sparseIndices []uint32, sparseUVs [][2]float32) uint32 {
	idxBuf := make([]byte, 0, len(sparseIndices)*4)
	for _, v := range sparseIndices {
		idxBuf = binary.LittleEndian.AppendUint32(idxBuf, v)
	}
	idxBV := b.addBufferView(idxBuf, 0)
	valBV := b.addBufferView(packVec2(sparseUVs), 0)

	return b.addAccessor(&gltf.Accessor{
		ComponentType: gltf.ComponentFloat,
		Type:          gltf.AccessorVec2,
		Count:         nverts,
		Sparse: &gltf.Sparse{
			Count: uint32(len(sparseIndices)),
			Indices: gltf.SparseIndices{
				BufferView:    idxBV,
				ComponentType: gltf.ComponentUint,
			},
			Values: gltf.SparseValues{
				BufferView: valBV,
			},
		},
	})
}

// SharedSampler returns the index of a single linear-mag /
// linear-mipmap-linear-min / repeat-wrap sampler, creating it on first
// use (spec.md §4.6: "One shared sampler").
func (b *Builder) SharedSampler() uint32 {
	for i, s := range b.Doc.Samplers {
		if s.MagFilter == gltf.MagLinear && s.MinFilter == gltf.MinLinearMipMapLinear {
			return uint32(i)
		}
	}
	idx := uint32(len(b.Doc.Samplers))
	b.Doc.Samplers = append(b.Doc.Samplers, &gltf.Sampler{
		MagFilter: gltf.MagLinear,
		MinFilter: gltf.MinLinearMipMapLinear,
		WrapS:     gltf.WrapRepeat,
		WrapT:     gltf.WrapRepeat,
	})
	return idx
}

// AddTextureMaterial creates an image/texture/material triple for a
// texture tag, using the ../textures/<tag>.png sibling-directory
// convention (spec.md §9). The material is unlit-adjacent PBR: white base
// color, fully rough, non-metallic, double-sided, alpha-masked.
func (b *Builder) AddTextureMaterial(tag string) uint32 {
	imgIdx := uint32(len(b.Doc.Images))
	b.Doc.Images = append(b.Doc.Images, &gltf.Image{
		Name: tag,
		URI:  "../textures/" + tag + ".png",
	})

	texIdx := uint32(len(b.Doc.Textures))
	b.Doc.Textures = append(b.Doc.Textures, &gltf.Texture{
		Name:    tag,
		Source:  gltf.Index(imgIdx),
		Sampler: gltf.Index(b.SharedSampler()),
	})

	matIdx := uint32(len(b.Doc.Materials))
	b.Doc.Materials = append(b.Doc.Materials, &gltf.Material{
		Name: tag,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 1, 1, 1},
			BaseColorTexture: &gltf.TextureInfo{
				Index: texIdx,
			},
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(1),
		},
		AlphaMode:   gltf.AlphaMask,
		DoubleSided: true,
	})
	return matIdx
}

func packVec3(data [][3]float32) []byte {
	buf := make([]byte, 0, len(data)*12)
	for _, v := range data {
		for _, c := range v {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(c))
		}
	}
	return buf
}

func packVec2(data [][2]float32) []byte {
	buf := make([]byte, 0, len(data)*8)
	for _, v := range data {
		for _, c := range v {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(c))
		}
	}
	return buf
}

func packVec4(data [][4]float32) []byte {
	buf := make([]byte, 0, len(data)*16)
	for _, v := range data {
		for _, c := range v {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(c))
		}
	}
	return buf
}

// Save writes doc as separate .gltf JSON + .bin files. JSON serialization
// itself is out of core scope (spec.md Non-goals); gltf.Save is the
// opaque writer boundary.
func Save(doc *gltf.Document, path string) error {
	return gltf.Save(doc, path)
}
