// Package mesh parses SCF/SMF mesh blobs and emits glTF mesh nodes,
// optionally skinned, per spec.md §4.6. Binary layout follows the same
// typed-cursor style as internal/ssk and internal/ssn; glTF assembly is
// built on internal/gltfdoc and github.com/qmuntal/gltf.
package mesh

import (
	"fmt"

	"cvrextract/internal/breader"
	"cvrextract/internal/gltfdoc"
	"cvrextract/internal/smt"
	"cvrextract/internal/ssn"

	"github.com/qmuntal/gltf"
)

const (
	headerFields  = 15 // leading u32 fields; field 0 = nverts, field 1 = strip count
	skipFields    = 54
	unknownFields = 13
)

// Strip is one triangle strip: an index run into the mesh's vertex
// buffers plus its own UV set (materialized as a sparse accessor
// override, per spec.md §4.6).
type Strip struct {
	MaterialSlot uint16
	Flags        uint16
	Indices      []uint32
	UVs          [][2]float32
}

// Mesh is a parsed SCF/SMF blob.
type Mesh struct {
	Name      string
	NumVerts  int
	Positions [][3]float32
	Normals   [][3]float32
	Strips    []Strip
}

// Parse reads a mesh blob. Per spec.md §4.6, the header's first u32 is
// the vertex count and the second is the strip count — see DESIGN.md for
// this field-indexing decision.
func Parse(data []byte) (*Mesh, error) {
	r := breader.New(data)
	if !r.Remaining(headerFields*4 + skipFields*4 + 32 + unknownFields*4) {
		return nil, fmt.Errorf("mesh: truncated header")
	}

	var header [headerFields]uint32
	for i := range header {
		header[i] = r.U32()
	}
	nverts := int(header[0])
	stripCount := int(header[1])
	if nverts < 0 || stripCount < 0 {
		return nil, fmt.Errorf("mesh: negative count in header")
	}

	r.Skip(skipFields * 4)
	name := r.FixedASCII(32)
	r.Skip(unknownFields * 4)

	if !r.Remaining(nverts * 16 * 2) {
		return nil, fmt.Errorf("mesh: truncated vertex data")
	}
	positions := make([][3]float32, nverts)
	for i := range positions {
		positions[i] = [3]float32{r.F32(), r.F32(), r.F32()}
		r.F32() // drop 4th component
	}
	normals := make([][3]float32, nverts)
	for i := range normals {
		normals[i] = [3]float32{r.F32(), r.F32(), r.F32()}
		r.F32() // drop 4th component
	}

	unknownPerVertex := nverts*12 + stripCount*4
	if !r.Remaining(unknownPerVertex) {
		return nil, fmt.Errorf("mesh: truncated per-vertex unknown block")
	}
	r.Skip(unknownPerVertex)

	strips := make([]Strip, stripCount)
	for i := 0; i < stripCount; i++ {
		if !r.Remaining(4 + 2 + 2 + 4) {
			return nil, fmt.Errorf("mesh: truncated strip header %d", i)
		}
		r.U32() // unknown
		matSlot := r.U16()
		flags := r.U16()
		nelem := int(r.U32())
		if nelem < 0 {
			return nil, fmt.Errorf("mesh: negative nelem in strip %d", i)
		}
		aligned := (nelem + 7) &^ 7

		if !r.Remaining(aligned*4 + aligned*2*4) {
			return nil, fmt.Errorf("mesh: truncated strip payload %d", i)
		}
		indices := make([]uint32, aligned)
		for k := range indices {
			indices[k] = r.U32()
		}
		indices = indices[:nelem]

		uvs := make([][2]float32, aligned)
		for k := range uvs {
			uvs[k] = [2]float32{r.F32(), r.F32()}
		}
		uvs = uvs[:nelem]

		strips[i] = Strip{MaterialSlot: matSlot, Flags: flags, Indices: indices, UVs: uvs}
	}

	return &Mesh{Name: name, NumVerts: nverts, Positions: positions, Normals: normals, Strips: strips}, nil
}

// SkinInput bundles the skeleton bone count and SSN skin needed to emit
// skinned vertex attributes.
type SkinInput struct {
	BoneCount int
	Skin      *ssn.Skin
}

// TextureTagger maps a material's texture tag to a material index already
// present in the document, creating it on first use.
type TextureTagger interface {
	MaterialFor(tag string) uint32
}

// Emit adds m's mesh/primitives (and, if skin is non-nil, a skin) to doc,
// returning the new node index. mat supplies material-slot → texture-tag
// lookups via tags (parallel to mat.Params); a nil mat is replaced by
// smt.Placeholder, and a slot past the end of mat.Tags uses mat.Name as
// its tag ("ERROR" for the placeholder).
func Emit(doc *gltf.Document, m *Mesh, skin *SkinInput, mat *smt.Material, tagger TextureTagger) uint32 {
	b := gltfdoc.NewBuilder(doc)

	posAcc := b.WritePositions(m.Positions)
	normAcc := b.WriteNormals(m.Normals)

	meshIdx := uint32(len(doc.Meshes))
	glMesh := &gltf.Mesh{Name: m.Name}

	for _, strip := range m.Strips {
		idxAcc := b.WriteIndicesUint32(strip.Indices)
		uvAcc := b.WriteSparseUVAccessor(uint32(m.NumVerts), strip.Indices, strip.UVs)

		tag := tagForSlot(mat, strip.MaterialSlot)
		matIdx := tagger.MaterialFor(tag)

		prim := &gltf.Primitive{
			Attributes: map[string]uint32{
				"POSITION":   posAcc,
				"NORMAL":     normAcc,
				"TEXCOORD_0": uvAcc,
			},
			Indices:  gltf.Index(idxAcc),
			Material: gltf.Index(matIdx),
			Mode:     gltf.PrimitiveTriangleStrip,
		}
		if skin != nil {
			prim.Attributes["JOINTS_0"] = 0   // filled in below once, shared across strips
			prim.Attributes["WEIGHTS_0"] = 0
		}
		glMesh.Primitives = append(glMesh.Primitives, prim)
	}
	doc.Meshes = append(doc.Meshes, glMesh)

	nodeIdx := uint32(len(doc.Nodes))
	node := &gltf.Node{
		Name: m.Name,
		Mesh: gltf.Index(meshIdx),
		// Fix coordinate handedness on the mesh node (spec.md §4.6).
		Rotation: [4]float32{0.5, 0.5, -0.5, 0.5},
	}

	if skin != nil {
		jointsAcc, weightsAcc := emitSkinAttributes(b, m.NumVerts, skin.Skin)
		for _, prim := range glMesh.Primitives {
			prim.Attributes["JOINTS_0"] = jointsAcc
			prim.Attributes["WEIGHTS_0"] = weightsAcc
		}

		ibmAcc := b.WriteMat4s(identityMatrices(skin.BoneCount))

		joints := make([]uint32, skin.BoneCount)
		for i := range joints {
			joints[i] = uint32(i)
		}
		skinIdx := uint32(len(doc.Skins))
		doc.Skins = append(doc.Skins, &gltf.Skin{
			InverseBindMatrices: gltf.Index(ibmAcc),
			Joints:              joints,
		})
		node.Skin = gltf.Index(skinIdx)
	}

	doc.Nodes = append(doc.Nodes, node)
	return nodeIdx
}

// identityMatrices returns n identity 4x4 matrices, used as the
// inverse-bind-matrices accessor for every skinned mesh (spec.md §4.6).
func identityMatrices(n int) [][16]float32 {
	out := make([][16]float32, n)
	for i := range out {
		out[i] = [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	}
	return out
}

func tagForSlot(mat *smt.Material, slot uint16) string {
	if mat == nil {
		mat = smt.Placeholder()
	}
	if int(slot) < len(mat.Tags) {
		return mat.Tags[slot]
	}
	return mat.Name
}

// emitSkinAttributes builds the flat per-vertex JOINTS_0/WEIGHTS_0 arrays
// described in spec.md §4.6: each simple binding contributes Count copies
// of [bone,0,0,0]/[1,0,0,0]; each multiplex entry contributes its three
// bone/weight slots padded with a trailing zero.
func emitSkinAttributes(b *gltfdoc.Builder, nverts int, skin *ssn.Skin) (jointsAcc, weightsAcc uint32) {
	joints := make([][4]uint32, 0, nverts)
	weights := make([][4]float32, 0, nverts)

	for _, sb := range skin.Simple {
		for i := uint32(0); i < sb.VertexCount; i++ {
			joints = append(joints, [4]uint32{sb.Bone, 0, 0, 0})
			weights = append(weights, [4]float32{1, 0, 0, 0})
		}
	}
	for _, mb := range skin.Multi {
		for i := uint32(0); i < mb.Count; i++ {
			joints = append(joints, [4]uint32{mb.Bones[0], mb.Bones[1], mb.Bones[2], 0})
			weights = append(weights, [4]float32{mb.Weights[0], mb.Weights[1], mb.Weights[2], 0})
		}
	}

	return b.WriteJointsUint32(joints), b.WriteWeights(weights)
}
