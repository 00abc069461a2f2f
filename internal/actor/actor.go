// Package actor implements the actor-assembler: for each actor/animation
// pair it loads the skeleton, skin, character mesh, material, and
// animation, and combines them into one glTF scene, per spec.md §4.8.
package actor

import (
	"fmt"

	"cvrextract/internal/anim"
	"cvrextract/internal/gltfdoc"
	"cvrextract/internal/mesh"
	"cvrextract/internal/script"
	"cvrextract/internal/smt"
	"cvrextract/internal/ssk"
	"cvrextract/internal/ssn"
	"cvrextract/internal/symbols"

	"github.com/qmuntal/gltf"
)

// PathLoader resolves a "directory/name" path as recorded in a
// symbols.Index to its archive payload.
type PathLoader func(path string) ([]byte, bool)

// NameLoader resolves a bare file stem (no directory, no extension) plus
// an extension to its archive payload. Animation (SAF) and material (SMT)
// files have no entry in symbols.Index — spec.md §5 names only the
// skeleton/skin/mesh symbol tables — so they are located by filename
// instead, mirroring how the script files name them directly.
type NameLoader func(stem, ext string) ([]byte, bool)

// Result is one emitted (actor, animation) glTF scene, or a
// cross-reference/format failure for that pair (spec.md §7: reported and
// skipped, never fatal to the run).
type Result struct {
	Actor     string
	Animation string
	Doc       *gltf.Document
	Err       error
}

// Assemble runs the actor-assembler over every actor, emitting one
// Result per (actor, animation) pair in its animset. An actor whose
// animset, skeleton or mesh cannot be resolved yields a single error
// Result with an empty Animation instead.
func Assemble(idx *symbols.Index, byPath PathLoader, byName NameLoader, animsets map[string]script.Animset, actors map[string]script.Actor) []Result {
	var results []Result

	for actorName, a := range actors {
		set, ok := animsets[a.AnimsetName]
		if !ok {
			results = append(results, fail(actorName, "", fmt.Errorf("unknown animset %q", a.AnimsetName)))
			continue
		}

		skel, meshData, skin, mat, err := loadActorAssets(idx, byPath, byName, a.SkeletonSymbol)
		if err != nil {
			results = append(results, fail(actorName, "", err))
			continue
		}
		parsedMesh, err := mesh.Parse(meshData)
		if err != nil {
			results = append(results, fail(actorName, "", fmt.Errorf("mesh: %w", err)))
			continue
		}

		for _, animName := range set.Animations {
			results = append(results, assembleOne(actorName, animName, skel, parsedMesh, skin, mat, byName))
		}
	}

	return results
}

func loadActorAssets(idx *symbols.Index, byPath PathLoader, byName NameLoader, skeletonSymbol string) (*ssk.Skeleton, []byte, *ssn.Skin, *smt.Material, error) {
	skelPath, ok := idx.Skeletons[skeletonSymbol]
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("unknown skeleton symbol %q", skeletonSymbol)
	}
	skelData, ok := byPath(skelPath)
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("missing skeleton payload %q", skelPath)
	}
	skel, err := ssk.Load(skelData)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("skeleton: %w", err)
	}

	meshPath, ok := idx.Meshes[skeletonSymbol]
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("no character mesh for symbol %q", skeletonSymbol)
	}
	meshData, ok := byPath(meshPath)
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("missing mesh payload %q", meshPath)
	}

	var skin *ssn.Skin
	if skinPath, ok := idx.Skins[skeletonSymbol]; ok {
		if skinData, ok := byPath(skinPath); ok {
			if s, err := ssn.Load(skinData); err == nil {
				skin = s
			}
		}
	}

	mat := smt.Placeholder()
	if matData, ok := byName(skeletonSymbol, ".smt"); ok {
		if m, err := smt.Load(matData); err == nil {
			mat = m
		}
	}

	return skel, meshData, skin, mat, nil
}

func assembleOne(actorName, animName string, skel *ssk.Skeleton, parsedMesh *mesh.Mesh, skin *ssn.Skin, mat *smt.Material, byName NameLoader) Result {
	animData, ok := byName(animName, ".saf")
	if !ok {
		return fail(actorName, animName, fmt.Errorf("unknown animation symbol %q", animName))
	}
	parsedAnim, err := anim.Parse(animData, len(skel.Bones))
	if err != nil {
		return fail(actorName, animName, err)
	}

	doc := gltfdoc.New()
	nodeOf := buildSkeletonNodes(doc, skel)
	anim.Emit(doc, parsedAnim, func(bone int) uint32 { return nodeOf[bone] })

	tagger := newMaterialSet(doc)
	var skinInput *mesh.SkinInput
	if skin != nil {
		skinInput = &mesh.SkinInput{BoneCount: len(skel.Bones), Skin: skin}
	}
	meshNode := mesh.Emit(doc, parsedMesh, skinInput, mat, tagger)

	doc.Scenes[0].Nodes = append(rootNodeIndices(skel), meshNode)

	return Result{Actor: actorName, Animation: animName, Doc: doc}
}

// buildSkeletonNodes emits one glTF node per bone (children = the bone's
// flat child-index list, translation = the bone's translation row, name =
// the bone tag) and returns bone index -> node index (spec.md §4.8).
func buildSkeletonNodes(doc *gltf.Document, skel *ssk.Skeleton) []uint32 {
	base := uint32(len(doc.Nodes))
	nodeOf := make([]uint32, len(skel.Bones))
	for i := range skel.Bones {
		nodeOf[i] = base + uint32(i)
	}
	for i, bone := range skel.Bones {
		children := make([]uint32, len(bone.Children))
		for k, c := range bone.Children {
			children[k] = nodeOf[c]
		}
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name:        bone.Name,
			Children:    children,
			Translation: bone.Translation,
		})
	}
	return nodeOf
}

// rootNodeIndices returns the node indices of bones with no parent — any
// bone never listed as another bone's child.
func rootNodeIndices(skel *ssk.Skeleton) []uint32 {
	hasParent := make([]bool, len(skel.Bones))
	for _, bone := range skel.Bones {
		for _, c := range bone.Children {
			if c >= 0 && c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []uint32
	for i, parented := range hasParent {
		if !parented {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

// materialSet implements mesh.TextureTagger, memoizing one material per
// texture tag within a single glTF document.
type materialSet struct {
	b     *gltfdoc.Builder
	byTag map[string]uint32
}

func newMaterialSet(doc *gltf.Document) *materialSet {
	return &materialSet{b: gltfdoc.NewBuilder(doc), byTag: make(map[string]uint32)}
}

func (m *materialSet) MaterialFor(tag string) uint32 {
	if idx, ok := m.byTag[tag]; ok {
		return idx
	}
	idx := m.b.AddTextureMaterial(tag)
	m.byTag[tag] = idx
	return idx
}

func fail(actor, animation string, err error) Result {
	return Result{Actor: actor, Animation: animation, Err: fmt.Errorf("actor %q: %w", actor, err)}
}
