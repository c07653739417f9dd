// Package formats reads the RSM model format used as a mesh source.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/meshsimplify/pkg/encoding"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
	ErrInvalidRSMCount       = errors.New("invalid RSM element count")
)

const (
	rsmMagic      = "GRSM"
	rsmNameLength = 40
	maxNodes      = 10000
	maxElements   = 1 << 20
)

// RSMVersion is the file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSMShadingType is the shading mode stored in the header.
type RSMShadingType int32

const (
	RSMShadingNone   RSMShadingType = 0
	RSMShadingFlat   RSMShadingType = 1
	RSMShadingSmooth RSMShadingType = 2
)

// String returns a readable shading name.
func (s RSMShadingType) String() string {
	switch s {
	case RSMShadingNone:
		return "None"
	case RSMShadingFlat:
		return "Flat"
	case RSMShadingSmooth:
		return "Smooth"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// RSMTexCoord is a texture coordinate with its vertex color (1.2+).
type RSMTexCoord struct {
	Color [4]uint8
	U, V  float32
}

// RSMFace is a triangle. Vertex and texcoord IDs index the owning node.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16
	TwoSide     int32
	SmoothGroup int32
}

// RSMPosKeyframe is a position key (before 1.5).
type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
}

// RSMRotKeyframe is a rotation key, quaternion stored as x, y, z, w.
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32
}

// RSMScaleKeyframe is a scale key (1.5+).
type RSMScaleKeyframe struct {
	Frame int32
	Scale [3]float32
}

// RSMNode is one mesh of the model hierarchy.
type RSMNode struct {
	Name   string
	Parent string
	// TextureIDs index RSM.Textures; RSMFace.TextureID indexes this slice.
	TextureIDs []int32

	Matrix   [9]float32
	Offset   [3]float32
	Position [3]float32
	RotAngle float32
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords []RSMTexCoord
	Faces     []RSMFace

	PosKeys   []RSMPosKeyframe
	RotKeys   []RSMRotKeyframe
	ScaleKeys []RSMScaleKeyframe
}

// RSMVolumeBox is a collision volume.
type RSMVolumeBox struct {
	Size     [3]float32
	Position [3]float32
	Rotation [3]float32
	Flag     int32
}

// RSM is a parsed model.
type RSM struct {
	Version     RSMVersion
	AnimLength  int32
	Shading     RSMShadingType
	Alpha       float32
	Textures    []string
	RootNode    string
	Nodes       []RSMNode
	VolumeBoxes []RSMVolumeBox
}

// rsmReader decodes little-endian fields and remembers the first failure,
// so the parser can read a whole record and check once.
type rsmReader struct {
	r   *bytes.Reader
	err error
}

func (rd *rsmReader) read(v any) {
	if rd.err != nil {
		return
	}
	if err := binary.Read(rd.r, binary.LittleEndian, v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrTruncatedRSMData
		}
		rd.err = err
	}
}

func (rd *rsmReader) i32() int32 {
	var v int32
	rd.read(&v)
	return v
}

func (rd *rsmReader) f32() float32 {
	var v float32
	rd.read(&v)
	return v
}

func (rd *rsmReader) vec3() [3]float32 {
	var v [3]float32
	rd.read(&v)
	return v
}

// name reads a fixed-size, NUL-padded EUC-KR string.
func (rd *rsmReader) name() string {
	buf := make([]byte, rsmNameLength)
	rd.read(buf)
	if rd.err != nil {
		return ""
	}
	return encoding.DecodeName(buf)
}

// count reads an element count and checks it against limit.
func (rd *rsmReader) count(what string, limit int) int {
	n := rd.i32()
	if rd.err == nil && (n < 0 || int(n) > limit) {
		rd.err = fmt.Errorf("%w: %d %s", ErrInvalidRSMCount, n, what)
	}
	if rd.err != nil {
		return 0
	}
	return int(n)
}

// ParseRSM parses an RSM model. Versions 1.1 to 1.5 are supported.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < len(rsmMagic)+2 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:len(rsmMagic)]) != rsmMagic {
		return nil, ErrInvalidRSMMagic
	}

	rsm := &RSM{
		Version: RSMVersion{Major: data[4], Minor: data[5]},
		Alpha:   1,
	}
	if rsm.Version.Major != 1 || rsm.Version.Minor < 1 || rsm.Version.Minor > 5 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	rd := &rsmReader{r: bytes.NewReader(data[6:])}
	rsm.AnimLength = rd.i32()
	rsm.Shading = RSMShadingType(rd.i32())
	if rsm.Version.AtLeast(1, 4) {
		var alpha uint8
		rd.read(&alpha)
		rsm.Alpha = float32(alpha) / 255
	}
	var reserved [16]byte
	rd.read(&reserved)

	rsm.Textures = make([]string, rd.count("textures", maxElements))
	for i := range rsm.Textures {
		rsm.Textures[i] = rd.name()
	}
	rsm.RootNode = rd.name()
	if rd.err != nil {
		return nil, fmt.Errorf("reading header: %w", rd.err)
	}

	nodeCount := rd.i32()
	if rd.err != nil {
		return nil, fmt.Errorf("reading node count: %w", rd.err)
	}
	if nodeCount < 0 || nodeCount > maxNodes {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNodeCount, nodeCount)
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		rd.node(&rsm.Nodes[i], rsm.Version)
		if rd.err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, rd.err)
		}
	}

	// Volume boxes are optional trailing data.
	if rd.r.Len() >= 4 {
		rsm.VolumeBoxes = make([]RSMVolumeBox, rd.count("volume boxes", maxElements))
		for i := range rsm.VolumeBoxes {
			box := &rsm.VolumeBoxes[i]
			box.Size = rd.vec3()
			box.Position = rd.vec3()
			box.Rotation = rd.vec3()
			if rsm.Version.AtLeast(1, 3) {
				box.Flag = rd.i32()
			}
		}
		if rd.err != nil {
			return nil, fmt.Errorf("reading volume boxes: %w", rd.err)
		}
	}

	return rsm, nil
}

func (rd *rsmReader) node(node *RSMNode, version RSMVersion) {
	node.Name = rd.name()
	node.Parent = rd.name()

	node.TextureIDs = make([]int32, rd.count("texture ids", maxElements))
	rd.read(node.TextureIDs)

	rd.read(&node.Matrix)
	node.Offset = rd.vec3()
	node.Position = rd.vec3()
	node.RotAngle = rd.f32()
	node.RotAxis = rd.vec3()
	node.Scale = rd.vec3()

	node.Vertices = make([][3]float32, rd.count("vertices", maxElements))
	rd.read(node.Vertices)

	node.TexCoords = make([]RSMTexCoord, rd.count("texcoords", maxElements))
	for i := range node.TexCoords {
		tc := &node.TexCoords[i]
		if version.AtLeast(1, 2) {
			rd.read(&tc.Color)
		} else {
			tc.Color = [4]uint8{255, 255, 255, 255}
		}
		tc.U = rd.f32()
		tc.V = rd.f32()
	}

	node.Faces = make([]RSMFace, rd.count("faces", maxElements))
	for i := range node.Faces {
		face := &node.Faces[i]
		rd.read(&face.VertexIDs)
		rd.read(&face.TexCoordIDs)
		rd.read(&face.TextureID)
		var padding uint16
		rd.read(&padding)
		face.TwoSide = rd.i32()
		if version.AtLeast(1, 2) {
			face.SmoothGroup = rd.i32()
		}
	}

	if !version.AtLeast(1, 5) {
		node.PosKeys = make([]RSMPosKeyframe, rd.count("position keys", maxElements))
		for i := range node.PosKeys {
			node.PosKeys[i].Frame = rd.i32()
			node.PosKeys[i].Position = rd.vec3()
		}
	}

	node.RotKeys = make([]RSMRotKeyframe, rd.count("rotation keys", maxElements))
	for i := range node.RotKeys {
		node.RotKeys[i].Frame = rd.i32()
		rd.read(&node.RotKeys[i].Quaternion)
	}

	if version.AtLeast(1, 5) {
		node.ScaleKeys = make([]RSMScaleKeyframe, rd.count("scale keys", maxElements))
		for i := range node.ScaleKeys {
			node.ScaleKeys[i].Frame = rd.i32()
			node.ScaleKeys[i].Scale = rd.vec3()
		}
	}
}

// ParseRSMFile parses an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	rsm, err := ParseRSM(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rsm, nil
}

// VertexCount returns the number of vertices over all nodes.
func (rsm *RSM) VertexCount() int {
	total := 0
	for i := range rsm.Nodes {
		total += len(rsm.Nodes[i].Vertices)
	}
	return total
}

// FaceCount returns the number of faces over all nodes.
func (rsm *RSM) FaceCount() int {
	total := 0
	for i := range rsm.Nodes {
		total += len(rsm.Nodes[i].Faces)
	}
	return total
}

// Node returns the node with the given name, or nil.
func (rsm *RSM) Node(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// Root returns the root node, falling back to the first node.
func (rsm *RSM) Root() *RSMNode {
	if n := rsm.Node(rsm.RootNode); n != nil {
		return n
	}
	if len(rsm.Nodes) > 0 {
		return &rsm.Nodes[0]
	}
	return nil
}

// Children returns the nodes whose parent is name.
func (rsm *RSM) Children(name string) []*RSMNode {
	var children []*RSMNode
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Parent == name && rsm.Nodes[i].Name != name {
			children = append(children, &rsm.Nodes[i])
		}
	}
	return children
}

// HasAnimation reports whether any node carries keyframes.
func (rsm *RSM) HasAnimation() bool {
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		if len(n.PosKeys) > 0 || len(n.RotKeys) > 0 || len(n.ScaleKeys) > 0 {
			return true
		}
	}
	return false
}
