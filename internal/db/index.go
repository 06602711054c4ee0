package db

import (
	"errors"
	"fmt"
	"strconv"
)

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

const (
	// DistanceL2 is Euclidean distance.
	DistanceL2 DistanceMetric = "L2"
	// DistanceIP is inner product distance.
	DistanceIP DistanceMetric = "IP"
	// DistanceCosine is cosine distance.
	DistanceCosine DistanceMetric = "COSINE"
)

// FieldKind enumerates the schema field kinds a record index uses.
type FieldKind int

const (
	// FieldNumeric is a NUMERIC field.
	FieldNumeric FieldKind = iota
	// FieldTag is a TAG field.
	FieldTag
	// FieldVector is an HNSW FLOAT32 VECTOR field.
	FieldVector
)

// HNSW holds graph parameters for a vector field. Zero values keep server defaults.
type HNSW struct {
	M              int
	EFConstruction int
}

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name string
	Kind FieldKind

	Sortable  bool   // NUMERIC
	Separator string // TAG

	Dim      int // VECTOR
	Distance DistanceMetric
	Graph    HNSW
}

// IndexDefinition is an FT index over hashes sharing one key prefix.
type IndexDefinition struct {
	Name   string
	Prefix string
	Fields []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if idx.Prefix != "" && !IsValidIdentifier(idx.Prefix) {
		return errors.New("key prefix contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(idx.Fields))
	vectors := 0
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true

		if f.Kind == FieldVector {
			vectors++
			if f.Dim <= 0 {
				return errors.New("vector field requires positive DIM")
			}
		}
	}
	if vectors > 1 {
		return fmt.Errorf("at most one vector field is supported, got %d", vectors)
	}

	return nil
}

// Args renders the FT.CREATE arguments following the command name.
func (idx *IndexDefinition) Args() []string {
	args := []string{idx.Name, "ON", "HASH"}
	if idx.Prefix != "" {
		args = append(args, "PREFIX", "1", idx.Prefix)
	}

	args = append(args, "SCHEMA")
	for i := range idx.Fields {
		args = append(args, idx.Fields[i].args()...)
	}
	return args
}

func (f *IndexField) args() []string {
	switch f.Kind {
	case FieldNumeric:
		if f.Sortable {
			return []string{f.Name, "NUMERIC", "SORTABLE"}
		}
		return []string{f.Name, "NUMERIC"}
	case FieldTag:
		if f.Separator != "" {
			return []string{f.Name, "TAG", "SEPARATOR", f.Separator}
		}
		return []string{f.Name, "TAG"}
	default:
		distance := f.Distance
		if distance == "" {
			distance = DistanceCosine
		}
		attrs := []string{
			"TYPE", "FLOAT32",
			"DIM", strconv.Itoa(f.Dim),
			"DISTANCE_METRIC", string(distance),
		}
		if f.Graph.M > 0 {
			attrs = append(attrs, "M", strconv.Itoa(f.Graph.M))
		}
		if f.Graph.EFConstruction > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.Graph.EFConstruction))
		}
		out := make([]string, 0, 4+len(attrs))
		out = append(out, f.Name, "VECTOR", "HNSW", strconv.Itoa(len(attrs)))
		return append(out, attrs...)
	}
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
