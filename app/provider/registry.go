package provider

import (
	"crypto/md5"
	"crypto/sha256"
	"errors"
	"hash"
	"sort"
	"strings"
)

var ErrAlgorithmNotSupported = errors.New("signature algorithm is not supported")

type Algorithm string

const (
	AlgorithmMD5    Algorithm = "md5"
	AlgorithmSHA256 Algorithm = "sha256"
)

type Registry struct {
	digests map[Algorithm]func() hash.Hash
}

func NewRegistry() *Registry {
	return &Registry{digests: map[Algorithm]func() hash.Hash{
		AlgorithmMD5:    md5.New,
		AlgorithmSHA256: sha256.New,
	}}
}

func (r *Registry) Get(alg Algorithm) (func() hash.Hash, error) {
	digest, ok := r.digests[Algorithm(strings.ToLower(strings.TrimSpace(string(alg))))]
	if !ok {
		return nil, ErrAlgorithmNotSupported
	}
	return digest, nil
}

// Supported lists registered algorithm names in sorted order.
func (r *Registry) Supported() []string {
	names := make([]string, 0, len(r.digests))
	for alg := range r.digests {
		names = append(names, string(alg))
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()
