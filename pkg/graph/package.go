package graph

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/DataDog/zstd"
	"github.com/cespare/xxhash/v2"

	"github.com/fahmi-aa/routepack/pkg/geo"
	"github.com/fahmi-aa/routepack/pkg/logger"
)

const (
	// PackageExtension is the file extension of graph package files.
	PackageExtension = ".routepack"

	// FormatVersion is the only package format version this build reads.
	FormatVersion = 1
)

var packageMagic = [4]byte{'R', 'P', 'C', 'K'}

var log = logger.GetLogger("graph")

type chunkKind int

const (
	chunkNode chunkKind = iota
	chunkGeometry
	chunkName
	chunkGlobalNode
	chunkRTreeNode
	chunkKindCount
)

func (k chunkKind) String() string {
	switch k {
	case chunkNode:
		return "node"
	case chunkGeometry:
		return "geometry"
	case chunkName:
		return "name"
	case chunkGlobalNode:
		return "globalnode"
	case chunkRTreeNode:
		return "rtree"
	}
	return "unknown"
}

const blockFlagZstd = 1 << 0

// blockSpan locates one encoded block inside the package file.
type blockSpan struct {
	offset   uint64
	length   uint32
	checksum uint64
	flags    uint8
}

// Package is one imported graph package. Blocks are read on demand and
// verified against their stored checksum.
type Package struct {
	id     int32
	name   string
	bbox   geo.BBox
	reader io.ReaderAt
	closer io.Closer
	chunks [chunkKindCount][]blockSpan
}

func (p *Package) ID() int32 {
	return p.id
}

func (p *Package) Name() string {
	return p.name
}

func (p *Package) BBox() geo.BBox {
	return p.bbox
}

func (p *Package) blockCount(kind chunkKind) int {
	return len(p.chunks[kind])
}

// NodeBlockCount reports how many node blocks the package carries.
func (p *Package) NodeBlockCount() int {
	return p.blockCount(chunkNode)
}

// readBlock loads, verifies and decompresses one raw block payload.
func (p *Package) readBlock(kind chunkKind, blockIndex int32) ([]byte, error) {
	spans := p.chunks[kind]
	if blockIndex < 0 || int(blockIndex) >= len(spans) {
		return nil, blockOutOfBoundsError(kind.String(), NewBlockID(p.id, blockIndex), len(spans))
	}
	span := spans[blockIndex]

	raw := make([]byte, span.length)
	if _, err := p.reader.ReadAt(raw, int64(span.offset)); err != nil {
		return nil, fmt.Errorf("read %s block %d of package %q: %w", kind, blockIndex, p.name, err)
	}
	if sum := xxhash.Sum64(raw); sum != span.checksum {
		return nil, fmt.Errorf("%w: %s block %d of package %q (stored %x, computed %x)",
			ErrChecksum, kind, blockIndex, p.name, span.checksum, sum)
	}
	if span.flags&blockFlagZstd != 0 {
		data, err := zstd.Decompress(nil, raw)
		if err != nil {
			return nil, fmt.Errorf("decompress %s block %d of package %q: %w", kind, blockIndex, p.name, err)
		}
		return data, nil
	}
	return raw, nil
}

func (p *Package) close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// PackageManager owns the set of imported packages and assigns their ids.
type PackageManager struct {
	packages []*Package
	byName   map[string]*Package
}

func NewPackageManager() *PackageManager {
	return &PackageManager{byName: make(map[string]*Package)}
}

func (m *PackageManager) Packages() []*Package {
	return m.packages
}

func (m *PackageManager) packageByID(id int32) (*Package, error) {
	if id < 0 || int(id) >= len(m.packages) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPackage, id)
	}
	return m.packages[id], nil
}

func (m *PackageManager) packageByName(name string) (*Package, bool) {
	p, ok := m.byName[name]
	return p, ok
}

// ImportFile opens and imports one package file. The file stays open for
// on-demand block reads until Close.
func (m *PackageManager) ImportFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open package %s: %w", path, err)
	}
	if err := m.importReader(f, f, path); err != nil {
		f.Close()
		return err
	}
	return nil
}

// Import imports a package from an in-memory or otherwise pre-opened
// reader.
func (m *PackageManager) Import(r io.ReaderAt, origin string) error {
	return m.importReader(r, nil, origin)
}

func (m *PackageManager) importReader(r io.ReaderAt, closer io.Closer, origin string) error {
	pkg, err := parsePackage(r)
	if err != nil {
		return fmt.Errorf("import package %s: %w", origin, err)
	}
	if _, exists := m.byName[pkg.name]; exists {
		return fmt.Errorf("%w: duplicate package name %q from %s", ErrInvalidPackage, pkg.name, origin)
	}
	pkg.id = int32(len(m.packages))
	pkg.closer = closer
	m.packages = append(m.packages, pkg)
	m.byName[pkg.name] = pkg
	log.Infof("imported package %q (%d node blocks) from %s", pkg.name, pkg.NodeBlockCount(), origin)
	return nil
}

// ImportDirectory imports every package file in a directory. A file whose
// base name contains a separator is an override part: when the name before
// the first '-' matches another package file in the directory, the larger
// base package wins and the part is skipped. A package that fails to
// import is logged and skipped, it never aborts the rest of the directory.
func (m *PackageManager) ImportDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read package directory %s: %w", dir, err)
	}

	bases := make(map[string]bool)
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), PackageExtension) {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), PackageExtension)
		bases[base] = true
		names = append(names, base)
	}
	sort.Strings(names)

	imported := 0
	for _, base := range names {
		if idx := strings.Index(base, "-"); idx >= 0 && bases[base[:idx]] {
			log.Infof("skipping package part %q, overridden by %q", base, base[:idx])
			continue
		}
		path := filepath.Join(dir, base+PackageExtension)
		if err := m.ImportFile(path); err != nil {
			log.Warnf("skipping package: %v", err)
			continue
		}
		imported++
	}
	log.Infof("imported %d of %d package files from %s", imported, len(names), dir)
	return nil
}

// Close releases the underlying package files.
func (m *PackageManager) Close() error {
	var firstErr error
	for _, pkg := range m.packages {
		if err := pkg.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func parsePackage(r io.ReaderAt) (*Package, error) {
	br := bufio.NewReader(io.NewSectionReader(r, 0, 1<<62))

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	if !bytes.Equal(magic[:], packageMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidPackage, magic[:])
	}

	var version uint32
	if err := readLE(br, &version); err != nil {
		return nil, err
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFormatVersion, version, FormatVersion)
	}

	var nameLen uint16
	if err := readLE(br, &nameLen); err != nil {
		return nil, err
	}
	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(br, nameBuf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	if len(nameBuf) == 0 {
		return nil, fmt.Errorf("%w: empty package name", ErrInvalidPackage)
	}

	var bboxFixed [4]int32
	for i := range bboxFixed {
		if err := readLE(br, &bboxFixed[i]); err != nil {
			return nil, err
		}
	}

	pkg := &Package{
		name:   string(nameBuf),
		reader: r,
		bbox: geo.NewBBox(
			float64(bboxFixed[0])/CoordinateScale,
			float64(bboxFixed[1])/CoordinateScale,
			float64(bboxFixed[2])/CoordinateScale,
			float64(bboxFixed[3])/CoordinateScale,
		),
	}

	for kind := chunkKind(0); kind < chunkKindCount; kind++ {
		var count uint32
		if err := readLE(br, &count); err != nil {
			return nil, err
		}
		spans := make([]blockSpan, count)
		for i := range spans {
			var span blockSpan
			if err := readLE(br, &span.offset); err != nil {
				return nil, err
			}
			if err := readLE(br, &span.length); err != nil {
				return nil, err
			}
			if err := readLE(br, &span.checksum); err != nil {
				return nil, err
			}
			if err := readLE(br, &span.flags); err != nil {
				return nil, err
			}
			spans[i] = span
		}
		pkg.chunks[kind] = spans
	}
	return pkg, nil
}

func readLE(r io.Reader, v any) error {
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	return nil
}
