// Package loader reads program images into emulator memory.
//
// An image is a text file with one 32-bit word per line, written in hex with
// or without a 0x prefix. Everything after # or // is a comment. A line of
// the form "@<hex address>" starts a new segment at that address; words
// before the first directive go to the text base.
package loader

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/legsim/emu"
)

// TextBase is where the first segment of an image is placed.
const TextBase uint64 = 0x00400000

// Segment is a run of consecutive words.
type Segment struct {
	// Addr is the address of the first word.
	Addr  uint64
	Words []uint32
}

// End returns the address just past the segment.
func (s Segment) End() uint64 {
	return s.Addr + uint64(len(s.Words))*4
}

// Program is a parsed image.
type Program struct {
	// EntryPoint is where execution starts: the text base.
	EntryPoint uint64
	Segments   []Segment
}

// Load parses the image at path.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open program image")
	}
	defer func() { _ = f.Close() }()

	prog, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}

	return prog, nil
}

// Parse reads an image from r.
func Parse(r io.Reader) (*Program, error) {
	prog := &Program{EntryPoint: TextBase}
	seg := Segment{Addr: TextBase}

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "@") {
			addr, err := parseHex(line[1:], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: bad address", lineNo)
			}
			if addr%4 != 0 {
				return nil, errors.Errorf("line %d: address 0x%x is not word aligned",
					lineNo, addr)
			}

			prog.addSegment(seg)
			seg = Segment{Addr: addr}

			continue
		}

		word, err := parseHex(line, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad word", lineNo)
		}

		seg.Words = append(seg.Words, uint32(word))
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read program image")
	}

	prog.addSegment(seg)

	if err := prog.checkOverlap(); err != nil {
		return nil, err
	}

	return prog, nil
}

func (p *Program) addSegment(seg Segment) {
	if len(seg.Words) > 0 {
		p.Segments = append(p.Segments, seg)
	}
}

func (p *Program) checkOverlap() error {
	for i, a := range p.Segments {
		for _, b := range p.Segments[i+1:] {
			if a.Addr < b.End() && b.Addr < a.End() {
				return errors.Errorf("segments at 0x%x and 0x%x overlap", a.Addr, b.Addr)
			}
		}
	}
	return nil
}

// Words returns the number of words in the image.
func (p *Program) Words() int {
	n := 0
	for _, seg := range p.Segments {
		n += len(seg.Words)
	}
	return n
}

// LoadInto writes every segment into memory.
func (p *Program) LoadInto(memory *emu.Memory) {
	for _, seg := range p.Segments {
		for i, w := range seg.Words {
			memory.Write32(seg.Addr+uint64(i)*4, w)
		}
	}
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

func parseHex(s string, bits int) (uint64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.ReplaceAll(s, "_", "")

	v, err := strconv.ParseUint(s, 16, bits)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return v, nil
}
