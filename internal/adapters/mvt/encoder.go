// Package mvt encodes Mapbox Vector Tiles. The encoder writes the protobuf
// wire format directly so that identical input always yields identical
// bytes; generic protobuf serializers do not guarantee map ordering.
package mvt

import (
	"fmt"
	"math"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers from the Mapbox Vector Tile 2.1 schema.
const (
	tileLayerField = 3

	layerVersionField  = 15
	layerNameField     = 1
	layerFeaturesField = 2
	layerKeysField     = 3
	layerValuesField   = 4
	layerExtentField   = 5

	featureIDField       = 1
	featureTagsField     = 2
	featureTypeField     = 3
	featureGeometryField = 4

	valueStringField = 1
	valueDoubleField = 3
	valueIntField    = 4
	valueBoolField   = 7
)

const (
	layerVersion  = 2
	geomTypePoint = 1
	moveToCommand = 1
)

// KV is a single feature property. Values may be string, bool, float64 or
// any integer type; everything else is stringified.
type KV struct {
	Key   string
	Value interface{}
}

// PointFeature is a point in tile-local integer coordinates.
type PointFeature struct {
	ID    uint64
	X, Y  int32
	Props []KV
}

// Layer is one named layer of a tile.
type Layer struct {
	Name     string
	Extent   uint32
	Features []PointFeature
}

// EncodeTile serializes the layer into a complete vector tile. Features are
// emitted in ascending ID order and property keys sorted lexicographically,
// so the output is byte-stable for a given input set.
func EncodeTile(layer Layer) ([]byte, error) {
	if layer.Name == "" {
		return nil, fmt.Errorf("layer name is required")
	}
	if layer.Extent == 0 {
		return nil, fmt.Errorf("layer extent is required")
	}

	encoded, err := encodeLayer(layer)
	if err != nil {
		return nil, err
	}

	var tile []byte
	tile = protowire.AppendTag(tile, tileLayerField, protowire.BytesType)
	tile = protowire.AppendBytes(tile, encoded)
	return tile, nil
}

// encodeLayer builds the layer message with deduplicated key and value
// tables.
func encodeLayer(layer Layer) ([]byte, error) {
	features := make([]PointFeature, len(layer.Features))
	copy(features, layer.Features)
	sort.Slice(features, func(i, j int) bool { return features[i].ID < features[j].ID })

	var (
		keys      []string
		keyIndex  = map[string]uint64{}
		values    [][]byte
		valIndex  = map[string]uint64{}
		encodedFs [][]byte
	)

	for i := range features {
		f := &features[i]

		props := make([]KV, len(f.Props))
		copy(props, f.Props)
		sort.Slice(props, func(i, j int) bool { return props[i].Key < props[j].Key })

		var tags []uint64
		for _, p := range props {
			ki, ok := keyIndex[p.Key]
			if !ok {
				ki = uint64(len(keys))
				keyIndex[p.Key] = ki
				keys = append(keys, p.Key)
			}

			encVal := encodeValue(p.Value)
			vi, ok := valIndex[string(encVal)]
			if !ok {
				vi = uint64(len(values))
				valIndex[string(encVal)] = vi
				values = append(values, encVal)
			}

			tags = append(tags, ki, vi)
		}

		encodedFs = append(encodedFs, encodeFeature(f, tags))
	}

	var b []byte
	b = protowire.AppendTag(b, layerVersionField, protowire.VarintType)
	b = protowire.AppendVarint(b, layerVersion)
	b = protowire.AppendTag(b, layerNameField, protowire.BytesType)
	b = protowire.AppendString(b, layer.Name)

	for _, ef := range encodedFs {
		b = protowire.AppendTag(b, layerFeaturesField, protowire.BytesType)
		b = protowire.AppendBytes(b, ef)
	}
	for _, k := range keys {
		b = protowire.AppendTag(b, layerKeysField, protowire.BytesType)
		b = protowire.AppendString(b, k)
	}
	for _, v := range values {
		b = protowire.AppendTag(b, layerValuesField, protowire.BytesType)
		b = protowire.AppendBytes(b, v)
	}

	b = protowire.AppendTag(b, layerExtentField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(layer.Extent))
	return b, nil
}

// encodeFeature builds one feature message with a single MoveTo point.
func encodeFeature(f *PointFeature, tags []uint64) []byte {
	var b []byte
	b = protowire.AppendTag(b, featureIDField, protowire.VarintType)
	b = protowire.AppendVarint(b, f.ID)

	if len(tags) > 0 {
		var packed []byte
		for _, t := range tags {
			packed = protowire.AppendVarint(packed, t)
		}
		b = protowire.AppendTag(b, featureTagsField, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}

	b = protowire.AppendTag(b, featureTypeField, protowire.VarintType)
	b = protowire.AppendVarint(b, geomTypePoint)

	// MoveTo with count 1, then the zigzag-encoded point.
	var geom []byte
	geom = protowire.AppendVarint(geom, uint64(moveToCommand&0x7)|(1<<3))
	geom = protowire.AppendVarint(geom, zigzag(f.X))
	geom = protowire.AppendVarint(geom, zigzag(f.Y))
	b = protowire.AppendTag(b, featureGeometryField, protowire.BytesType)
	b = protowire.AppendBytes(b, geom)

	return b
}

// encodeValue builds a Value message for a property value.
func encodeValue(v interface{}) []byte {
	var b []byte
	switch val := v.(type) {
	case string:
		b = protowire.AppendTag(b, valueStringField, protowire.BytesType)
		b = protowire.AppendString(b, val)
	case bool:
		b = protowire.AppendTag(b, valueBoolField, protowire.VarintType)
		if val {
			b = protowire.AppendVarint(b, 1)
		} else {
			b = protowire.AppendVarint(b, 0)
		}
	case float64:
		b = protowire.AppendTag(b, valueDoubleField, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(val))
	case float32:
		b = protowire.AppendTag(b, valueDoubleField, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(float64(val)))
	case int:
		b = protowire.AppendTag(b, valueIntField, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(val)))
	case int64:
		b = protowire.AppendTag(b, valueIntField, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(val))
	case uint64:
		b = protowire.AppendTag(b, valueIntField, protowire.VarintType)
		b = protowire.AppendVarint(b, val)
	default:
		b = protowire.AppendTag(b, valueStringField, protowire.BytesType)
		b = protowire.AppendString(b, fmt.Sprintf("%v", val))
	}
	return b
}

func zigzag(v int32) uint64 {
	return uint64(uint32((v << 1) ^ (v >> 31)))
}
