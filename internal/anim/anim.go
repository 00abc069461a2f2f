// Package anim parses SAF animation blobs and emits glTF animation
// samplers/channels per spec.md §4.7.
package anim

import (
	"fmt"

	"cvrextract/internal/breader"
	"cvrextract/internal/gltfdoc"

	"github.com/qmuntal/gltf"
)

const (
	eventsFlag      = 0x02
	fullPositions   = 0x10
	eventRecordSize = 36
)

// Keyframe is one parsed SAF sample: a time tick, one rotation quaternion
// per bone, and the root translation (plus, if present, a per-bone
// translation table).
type Keyframe struct {
	Time      uint32
	Rotations [][4]float32 // len == bone count
	RootTrans [4]float32
	BoneTrans [][3]float32 // non-nil only when fullPositions is set
}

// Animation is a parsed SAF blob.
type Animation struct {
	Name      string
	FPS       float32
	BoneCount int
	Keyframes []Keyframe // sentinel first/last frames already stripped
}

// Parse reads a SAF blob, validating its implied bone count against
// wantBoneCount (the skeleton this animation is meant to drive). Per
// spec.md §4.7 a mismatch is reported as ErrBoneCountMismatch so the
// caller can skip the animation with a diagnostic rather than abort.
func Parse(data []byte, wantBoneCount int) (*Animation, error) {
	r := breader.New(data)
	if !r.Remaining(32 + 4 + 4 + 4 + 4) {
		return nil, fmt.Errorf("anim: truncated header")
	}
	name := r.FixedASCII(32)
	flags := r.Take(4)
	fps := r.F32()
	version := r.U32()
	count := int(r.U32())
	if version != 1 {
		return nil, fmt.Errorf("anim: unsupported version %d", version)
	}
	if count < 0 {
		return nil, fmt.Errorf("anim: negative keyframe count")
	}

	nOffsets := count + 2
	if !r.Remaining(nOffsets * 4) {
		return nil, fmt.Errorf("anim: truncated offset table")
	}
	offsets := make([]uint32, nOffsets)
	for i := range offsets {
		offsets[i] = r.U32()
	}
	for _, off := range offsets {
		if int(off) < 0 || int(off) > r.Len() {
			return nil, fmt.Errorf("anim: offset %d out of range", off)
		}
	}
	if len(offsets) < 2 || offsets[1] < offsets[0] {
		return nil, fmt.Errorf("anim: malformed offset table")
	}
	boneCount := int((offsets[1]-offsets[0])/16) - 1
	if boneCount != wantBoneCount {
		return nil, fmt.Errorf("%w: animation implies %d bones, skeleton has %d", ErrBoneCountMismatch, boneCount, wantBoneCount)
	}

	keyframes := make([]Keyframe, nOffsets)
	for i := range keyframes {
		if !r.Remaining(4 + boneCount*16 + 16) {
			return nil, fmt.Errorf("anim: truncated keyframe %d", i)
		}
		kf := Keyframe{Time: r.U32()}
		kf.Rotations = make([][4]float32, boneCount)
		for b := range kf.Rotations {
			kf.Rotations[b] = [4]float32{r.F32(), r.F32(), r.F32(), r.F32()}
		}
		kf.RootTrans = [4]float32{r.F32(), r.F32(), r.F32(), r.F32()}
		keyframes[i] = kf
	}

	if flags[0]&eventsFlag != 0 {
		if !r.Remaining(8) {
			return nil, fmt.Errorf("anim: truncated events header")
		}
		nevents := int(r.U32())
		r.U32() // reserved
		if nevents < 0 || !r.Remaining(nevents*eventRecordSize) {
			return nil, fmt.Errorf("anim: truncated events block")
		}
		r.Skip(nevents * eventRecordSize)
	}

	if flags[0]&fullPositions != 0 {
		if !r.Remaining(nOffsets * boneCount * 16) {
			return nil, fmt.Errorf("anim: truncated per-bone translation table")
		}
		for i := range keyframes {
			trans := make([][3]float32, boneCount)
			for b := range trans {
				trans[b] = [3]float32{r.F32(), r.F32(), r.F32()}
				r.F32() // drop 4th component, same convention as mesh positions/normals
			}
			keyframes[i].BoneTrans = trans
		}
	}

	// First and last keyframes are sentinel padding (spec.md §4.7).
	if len(keyframes) < 2 {
		return nil, fmt.Errorf("anim: not enough keyframes to strip sentinels")
	}
	keyframes = keyframes[1 : len(keyframes)-1]

	return &Animation{Name: name, FPS: fps, BoneCount: boneCount, Keyframes: keyframes}, nil
}

// ErrBoneCountMismatch is returned by Parse when the animation's implied
// bone count disagrees with the skeleton it was paired with.
var ErrBoneCountMismatch = fmt.Errorf("anim: bone count mismatch")

// Emit adds one glTF animation to doc: one rotation channel per bone
// targeting nodeForBone(i), and either one translation channel per bone
// (when the per-bone translation table was present) or a single
// translation channel on bone 0 driven by the root-translation series.
func Emit(doc *gltf.Document, a *Animation, nodeForBone func(bone int) uint32) uint32 {
	b := gltfdoc.NewBuilder(doc)

	times := make([]float32, len(a.Keyframes))
	for i, kf := range a.Keyframes {
		times[i] = float32(kf.Time) / a.FPS
	}
	timeAcc := b.WriteScalarFloats(times)

	animIdx := uint32(len(doc.Animations))
	animation := &gltf.Animation{Name: a.Name}

	for bone := 0; bone < a.BoneCount; bone++ {
		rotations := make([][4]float32, len(a.Keyframes))
		for i, kf := range a.Keyframes {
			rotations[i] = kf.Rotations[bone]
		}
		rotAcc := b.WriteVec4Floats(rotations)
		addChannel(doc, animation, timeAcc, rotAcc, nodeForBone(bone), gltf.TRSRotation)
	}

	if a.Keyframes[0].BoneTrans != nil {
		for bone := 0; bone < a.BoneCount; bone++ {
			trans := make([][3]float32, len(a.Keyframes))
			for i, kf := range a.Keyframes {
				trans[i] = kf.BoneTrans[bone]
			}
			transAcc := b.WriteVec3Floats(trans)
			addChannel(doc, animation, timeAcc, transAcc, nodeForBone(bone), gltf.TRSTranslation)
		}
	} else {
		trans := make([][3]float32, len(a.Keyframes))
		for i, kf := range a.Keyframes {
			trans[i] = [3]float32{kf.RootTrans[0], kf.RootTrans[1], kf.RootTrans[2]}
		}
		transAcc := b.WriteVec3Floats(trans)
		addChannel(doc, animation, timeAcc, transAcc, nodeForBone(0), gltf.TRSTranslation)
	}

	doc.Animations = append(doc.Animations, animation)
	return animIdx
}

func addChannel(doc *gltf.Document, animation *gltf.Animation, inputAcc, outputAcc uint32, node uint32, path gltf.TRSProperty) {
	samplerIdx := uint32(len(animation.Samplers))
	animation.Samplers = append(animation.Samplers, &gltf.AnimationSampler{
		Input:         inputAcc,
		Output:        outputAcc,
		Interpolation: gltf.InterpolationLinear,
	})
	animation.Channels = append(animation.Channels, &gltf.Channel{
		Sampler: gltf.Index(samplerIdx),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(node),
			Path: path,
		},
	})
}
