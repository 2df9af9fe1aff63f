package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// TargetKind identifies how a run target is enumerated.
type TargetKind string

// Available target kinds.
const (
	// TargetLocal is a file, directory or glob on the local filesystem.
	TargetLocal TargetKind = "local"

	// TargetS3 is an object-store prefix given as s3://bucket/prefix.
	TargetS3 TargetKind = "s3"

	// TargetTabular is a single CSV or TSV file, ingested row by row.
	TargetTabular TargetKind = "tabular"
)

// String returns the string representation.
func (k TargetKind) String() string {
	return string(k)
}

// Target describes what a run ingests.
type Target struct {
	// Raw is the target exactly as given on the command line.
	Raw string

	// Kind is the enumeration strategy.
	Kind TargetKind

	// Bucket is the object-store bucket for s3 targets.
	Bucket string

	// Prefix is the key prefix for s3 targets.
	Prefix string
}

var (
	tabularSuffix  = regexp.MustCompile(`(?i)\.[ct]sv$`)
	indexNameChars = regexp.MustCompile(`[^A-Za-z0-9\-_]`)
)

// ParseTarget classifies a command-line target.
func ParseTarget(raw string) (Target, error) {
	if strings.TrimSpace(raw) == "" {
		return Target{}, fmt.Errorf("%w: specify a target", ErrConfig)
	}
	if strings.HasPrefix(strings.ToLower(raw), "s3://") {
		rest := raw[len("s3://"):]
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return Target{}, fmt.Errorf("%w: s3 target %q has no bucket", ErrConfig, raw)
		}
		return Target{Raw: raw, Kind: TargetS3, Bucket: bucket, Prefix: prefix}, nil
	}
	if tabularSuffix.MatchString(raw) {
		return Target{Raw: raw, Kind: TargetTabular}, nil
	}
	return Target{Raw: raw, Kind: TargetLocal}, nil
}

// DefaultIndexName derives an index name from the target's last path segment,
// keeping only letters, digits, dashes and underscores.
func (t Target) DefaultIndexName() string {
	path := t.Raw
	if t.Kind == TargetS3 {
		path = t.Prefix
	}
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return indexNameChars.ReplaceAllString(path, "")
}
