package newtdock

import (
	"bytes"
	"os"
	"path/filepath"
)

// Package is one installable bundle queued for upload. Data is read once
// and treated as immutable for the life of the session.
type Package struct {
	Name string
	Data []byte
}

// Newton packages open with one of these signatures.
var pkgSignatures = [][]byte{
	[]byte("package0"),
	[]byte("package1"),
}

// Valid reports whether the data carries a package signature. The dock
// accepts anything, so callers typically only warn on false.
func (p *Package) Valid() bool {
	for _, sig := range pkgSignatures {
		if bytes.HasPrefix(p.Data, sig) {
			return true
		}
	}
	return false
}

// LoadPackage reads a package file from disk.
func LoadPackage(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Package{Name: filepath.Base(path), Data: data}, nil
}

// Queue turns a fixed package list into a Consumer.NextPackage source.
func Queue(pkgs ...*Package) func() *Package {
	i := 0
	return func() *Package {
		if i >= len(pkgs) {
			return nil
		}
		p := pkgs[i]
		i++
		return p
	}
}
