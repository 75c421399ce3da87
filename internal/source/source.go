// Package source provides the read origin for shader-test scripts: an
// in-memory string or a file, plus an ordered list of token replacements that
// are resolved while lines are read.
//
// Replacement is intentionally recursive: a replacement's own text may contain
// tokens which are substituted again. A cyclic or self-growing replacement set
// would never terminate, so resolution is bounded per line and fails instead
// of looping.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxSubstitutionPasses bounds token resolution per physical line. One pass
// performs one substitution; a well-formed replacement set resolves a line in
// a handful of passes.
const maxSubstitutionPasses = 1000

// maxLineBytes bounds one physical line. Generated scripts carry long buffer
// subdata tails, well past bufio's default token size.
const maxLineBytes = 16 << 20

// ErrSubstitutionLoop reports a replacement set that does not terminate.
var ErrSubstitutionLoop = errors.New("token replacement does not terminate")

// SubstitutionError carries the line whose token resolution exceeded the
// pass bound. It unwraps to ErrSubstitutionLoop.
type SubstitutionError struct {
	Line string
}

func (e *SubstitutionError) Error() string {
	return fmt.Sprintf("%v on line %q", ErrSubstitutionLoop, e.Line)
}

func (e *SubstitutionError) Unwrap() error { return ErrSubstitutionLoop }

// TokenReplacement substitutes every occurrence of a literal token with a
// replacement string. Tokens are matched literally, never as patterns.
type TokenReplacement struct {
	Token       string `json:"token"`
	Replacement string `json:"replacement"`
}

// Source is a script read origin. It is created once per script, replacements
// are appended before the first read, and each Open produces an independent
// line reader over the same data.
type Source struct {
	data         data
	replacements []TokenReplacement
}

type data interface {
	open() (io.ReadCloser, error)
}

type stringData struct{ text string }

func (d stringData) open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(d.text)), nil
}

type fileData struct{ path string }

func (d fileData) open() (io.ReadCloser, error) {
	return os.Open(d.path)
}

// FromString creates a source reading lines from the given string.
func FromString(text string) *Source {
	return &Source{data: stringData{text: text}}
}

// FromFile creates a source reading lines from the given file.
func FromFile(path string) *Source {
	return &Source{data: fileData{path: path}}
}

// AddTokenReplacement appends a replacement to the source. Later reads
// substitute occurrences of token with replacement; the replacement text may
// itself contain tokens, which are resolved as well.
func (s *Source) AddTokenReplacement(token, replacement string) {
	s.replacements = append(s.replacements, TokenReplacement{
		Token:       token,
		Replacement: replacement,
	})
}

// AddReplacements appends a batch of replacements in order.
func (s *Source) AddReplacements(reps []TokenReplacement) {
	s.replacements = append(s.replacements, reps...)
}

// Replacements returns the replacements added so far, in declaration order.
func (s *Source) Replacements() []TokenReplacement {
	return s.replacements
}

// Open starts reading the source. Each call yields an independent reader
// positioned at the first line.
func (s *Source) Open() (*LineReader, error) {
	rc, err := s.data.open()
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &LineReader{
		scanner:      scanner,
		closer:       rc,
		replacements: s.replacements,
	}, nil
}

// ReadAll reads and resolves every line of the source.
func (s *Source) ReadAll() ([]string, error) {
	r, err := s.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var lines []string
	for {
		line, err := r.Next()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
}

// LineReader yields the source's lines with token replacements resolved.
type LineReader struct {
	scanner      *bufio.Scanner
	closer       io.Closer
	replacements []TokenReplacement
}

// Next returns the next resolved line. It returns io.EOF after the last line.
func (r *LineReader) Next() (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return substitute(r.scanner.Text(), r.replacements)
}

// Close releases the underlying reader.
func (r *LineReader) Close() error {
	return r.closer.Close()
}

// substitute resolves tokens on one line. Each pass applies the
// first-declared replacement whose token occurs in the line, at its first
// occurrence, then rescans the whole line so tokens introduced by a prior
// replacement are found too. The line is resolved when no token matches.
func substitute(line string, reps []TokenReplacement) (string, error) {
	if len(reps) == 0 {
		return line, nil
	}
	original := line
	for pass := 0; pass < maxSubstitutionPasses; pass++ {
		replaced := false
		for _, rep := range reps {
			if rep.Token == "" {
				continue
			}
			i := strings.Index(line, rep.Token)
			if i < 0 {
				continue
			}
			line = line[:i] + rep.Replacement + line[i+len(rep.Token):]
			replaced = true
			break
		}
		if !replaced {
			return line, nil
		}
	}
	return "", &SubstitutionError{Line: original}
}
