package eventstore

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
)

// whiteboardQuantizationGrid is the fixed-point grid used to quantize path
// coordinates into u16 offsets (spec.md §4.A.1: "10000-grid quantization").
const whiteboardQuantizationGrid = 10000

// compactableKinds lists the event kinds whose data may match the canonical
// whiteboard-object schema and therefore be considered for compact binary
// storage. Any kind not in this set is always stored as JSON.
var compactableKinds = map[string]bool{
	"draw":  true,
	"shape": true,
}

// whiteboardObject is the canonical schema a compactable event's Data must
// parse into. "path" additionally carries Points, which get bounding-box +
// quantized-offset compaction; Left/Top/Width/Height/Angle are stored as
// float32. Type, Fill and Stroke are not encoded: the decoder derives Type
// from the tag and leaves Fill and Stroke empty, so an object with a fill or
// stroke fails the round-trip check and stays JSON.
type whiteboardObject struct {
	Type   string    `json:"type"`
	Left   float64   `json:"left"`
	Top    float64   `json:"top"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	Angle  float64   `json:"angle"`
	Fill   string    `json:"fill,omitempty"`
	Stroke string    `json:"stroke,omitempty"`
	Points [][2]float64 `json:"points,omitempty"`
}

const (
	tagShape byte = 1
	tagPath  byte = 2
)

// TryCompact attempts to turn data into its compact binary representation.
// It returns ok=false whenever the kind isn't compactable, the data doesn't
// match the canonical schema, or the round trip through quantization would
// lose precision -- in all of those cases the caller must fall back to
// storing JSON (spec.md §4.A.1).
func TryCompact(kind string, data json.RawMessage) (out []byte, ok bool) {
	if !compactableKinds[kind] {
		return nil, false
	}

	var obj whiteboardObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, false
	}

	var buf bytes.Buffer
	if len(obj.Points) == 0 {
		buf.WriteByte(tagShape)
		writeShapeHeader(&buf, obj)
		encoded := buf.Bytes()
		if !roundTripsLosslessly(encoded, data) {
			return nil, false
		}
		return encoded, true
	}

	buf.WriteByte(tagPath)
	writeShapeHeader(&buf, obj)

	minX, minY, maxX, maxY := boundingBox(obj.Points)
	_ = binary.Write(&buf, binary.BigEndian, float32(minX))
	_ = binary.Write(&buf, binary.BigEndian, float32(minY))
	_ = binary.Write(&buf, binary.BigEndian, float32(maxX))
	_ = binary.Write(&buf, binary.BigEndian, float32(maxY))
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(obj.Points)))

	rangeX := maxX - minX
	rangeY := maxY - minY

	for _, p := range obj.Points {
		qx, okx := quantize(p[0], minX, rangeX)
		qy, oky := quantize(p[1], minY, rangeY)
		if !okx || !oky {
			return nil, false
		}
		_ = binary.Write(&buf, binary.BigEndian, qx)
		_ = binary.Write(&buf, binary.BigEndian, qy)
	}

	encoded := buf.Bytes()
	if !roundTripsLosslessly(encoded, data) {
		return nil, false
	}
	return encoded, true
}

func writeShapeHeader(buf *bytes.Buffer, obj whiteboardObject) {
	_ = binary.Write(buf, binary.BigEndian, float32(obj.Left))
	_ = binary.Write(buf, binary.BigEndian, float32(obj.Top))
	_ = binary.Write(buf, binary.BigEndian, float32(obj.Width))
	_ = binary.Write(buf, binary.BigEndian, float32(obj.Height))
	_ = binary.Write(buf, binary.BigEndian, float32(obj.Angle))
}

func boundingBox(points [][2]float64) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p[0])
		minY = math.Min(minY, p[1])
		maxX = math.Max(maxX, p[0])
		maxY = math.Max(maxY, p[1])
	}
	return
}

// quantize maps value into [0, whiteboardQuantizationGrid] relative to
// [base, base+span]. A zero-width span maps every point to 0.
func quantize(value, base, span float64) (uint16, bool) {
	if span == 0 {
		return 0, true
	}
	scaled := (value - base) / span * whiteboardQuantizationGrid
	if scaled < 0 || scaled > whiteboardQuantizationGrid {
		return 0, false
	}
	return uint16(math.Round(scaled)), true
}

// dequantize is the inverse of quantize, used only by roundTripsLosslessly
// and by the read path (FromCompact).
func dequantize(q uint16, base, span float64) float64 {
	if span == 0 {
		return base
	}
	return base + float64(q)/whiteboardQuantizationGrid*span
}

// roundTripsLosslessly re-parses encoded and compares it against the
// original JSON within floating point tolerance; any mismatch means the
// compaction was lossy and the caller must keep the JSON representation
// instead (spec.md §4.A.1: "loss of precision -> fall back to JSON").
func roundTripsLosslessly(encoded []byte, original json.RawMessage) bool {
	restored, err := FromCompact(encoded)
	if err != nil {
		return false
	}
	var want, got whiteboardObject
	if err := json.Unmarshal(original, &want); err != nil {
		return false
	}
	if err := json.Unmarshal(restored, &got); err != nil {
		return false
	}
	const eps = 1e-6
	if math.Abs(want.Left-got.Left) > eps || math.Abs(want.Top-got.Top) > eps ||
		math.Abs(want.Width-got.Width) > eps || math.Abs(want.Height-got.Height) > eps ||
		math.Abs(want.Angle-got.Angle) > eps {
		return false
	}
	if want.Fill != got.Fill || want.Stroke != got.Stroke {
		return false
	}
	if len(want.Points) != len(got.Points) {
		return false
	}
	for i := range want.Points {
		if math.Abs(want.Points[i][0]-got.Points[i][0]) > eps ||
			math.Abs(want.Points[i][1]-got.Points[i][1]) > eps {
			return false
		}
	}
	return true
}

// FromCompact decodes the compact binary representation back into JSON.
// The read path always produces JSON for consumers (spec.md §4.A.1).
func FromCompact(data []byte) (json.RawMessage, error) {
	r := bytes.NewReader(data)
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	var left, top, width, height, angle float32
	for _, dst := range []*float32{&left, &top, &width, &height, &angle} {
		if err := binary.Read(r, binary.BigEndian, dst); err != nil {
			return nil, err
		}
	}

	obj := whiteboardObject{
		Left: float64(left), Top: float64(top),
		Width: float64(width), Height: float64(height), Angle: float64(angle),
	}

	if tag == tagShape {
		obj.Type = "shape"
		return json.Marshal(obj)
	}

	obj.Type = "draw"
	var minX, minY, maxX, maxY float32
	for _, dst := range []*float32{&minX, &minY, &maxX, &maxY} {
		if err := binary.Read(r, binary.BigEndian, dst); err != nil {
			return nil, err
		}
	}
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	points := make([][2]float64, 0, count)
	for i := uint16(0); i < count; i++ {
		var qx, qy uint16
		if err := binary.Read(r, binary.BigEndian, &qx); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &qy); err != nil {
			return nil, err
		}
		points = append(points, [2]float64{
			dequantize(qx, float64(minX), float64(maxX-minX)),
			dequantize(qy, float64(minY), float64(maxY-minY)),
		})
	}
	obj.Points = points
	return json.Marshal(obj)
}
