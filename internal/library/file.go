package library

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dokzlo13/ledseqd/internal/color"
	"github.com/dokzlo13/ledseqd/internal/sequence"
)

// colorValue accepts either a "#RRGGBB" hex string or an {h, s, v} mapping.
type colorValue struct {
	c   color.RGB
	set bool
}

// UnmarshalYAML implements yaml.Unmarshaler for colorValue
func (v *colorValue) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		c, err := color.ParseHex(value.Value)
		if err != nil {
			return fmt.Errorf("bad color %q: %w", value.Value, err)
		}
		v.c = c
	case yaml.MappingNode:
		var hsv struct {
			H float64 `yaml:"h"`
			S float64 `yaml:"s"`
			V float64 `yaml:"v"`
		}
		if err := value.Decode(&hsv); err != nil {
			return err
		}
		v.c = color.HSV(hsv.H, hsv.S, hsv.V)
	default:
		return errors.New("color must be a hex string or an h/s/v mapping")
	}
	v.set = true
	return nil
}

// durationValue accepts a Go duration string ("500ms") or a bare integer
// interpreted as milliseconds.
type durationValue time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for durationValue
func (d *durationValue) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.New("duration must be a scalar")
	}
	if n, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
		*d = durationValue(time.Duration(n) * time.Millisecond)
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = durationValue(parsed)
	return nil
}

// loopValue accepts "forever" or a loop count.
type loopValue struct {
	lc  sequence.LoopCount
	set bool
}

// UnmarshalYAML implements yaml.Unmarshaler for loopValue
func (l *loopValue) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.New(`loop must be "forever" or a count`)
	}
	if value.Value == "forever" {
		l.lc = sequence.Forever()
		l.set = true
		return nil
	}
	n, err := strconv.ParseUint(value.Value, 10, 32)
	if err != nil {
		return fmt.Errorf(`loop must be "forever" or a count, got %q`, value.Value)
	}
	l.lc = sequence.Loops(uint32(n))
	l.set = true
	return nil
}

type stepDoc struct {
	Color      colorValue    `yaml:"color"`
	Duration   durationValue `yaml:"duration"`
	Transition string        `yaml:"transition"`
}

type sequenceDoc struct {
	Name         string     `yaml:"name"`
	Loop         loopValue  `yaml:"loop"`
	StartColor   colorValue `yaml:"start_color"`
	LandingColor colorValue `yaml:"landing_color"`
	Steps        []stepDoc  `yaml:"steps"`
}

func (d *sequenceDoc) empty() bool {
	return d.Name == "" && len(d.Steps) == 0
}

func (d *sequenceDoc) build(capacity int) (*sequence.Sequence, error) {
	if d.Name == "" {
		return nil, errors.New("sequence has no name")
	}

	b := sequence.NewBuilder()
	if capacity > 0 {
		b.Capacity(capacity)
	}
	if d.Loop.set {
		b.LoopCount(d.Loop.lc)
	}
	if d.StartColor.set {
		b.StartColor(d.StartColor.c)
	}
	if d.LandingColor.set {
		b.LandingColor(d.LandingColor.c)
	}

	for i, st := range d.Steps {
		if !st.Color.set {
			return nil, fmt.Errorf("step %d: missing color", i)
		}
		tr := sequence.TransitionStep
		if st.Transition != "" {
			parsed, err := sequence.ParseTransition(st.Transition)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			tr = parsed
		}
		b.Step(st.Color.c, time.Duration(st.Duration), tr)
	}

	return b.Build()
}

// LoadFile parses one YAML file. A file may hold several sequences as
// separate YAML documents.
func LoadFile(path string, capacity int) (map[string]*sequence.Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sequences := make(map[string]*sequence.Sequence)
	dec := yaml.NewDecoder(f)
	for {
		var doc sequenceDoc
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if doc.empty() {
			continue
		}
		seq, err := doc.build(capacity)
		if err != nil {
			return nil, fmt.Errorf("%s: sequence %q: %w", path, doc.Name, err)
		}
		if _, exists := sequences[doc.Name]; exists {
			return nil, fmt.Errorf("%s: sequence %q defined twice", path, doc.Name)
		}
		sequences[doc.Name] = seq
	}
	return sequences, nil
}

// LoadPaths loads every sequence file under the given paths. A path may be
// a single file or a directory of .yaml/.yml files; directories are not
// recursed. Names must be unique across all files.
func LoadPaths(paths []string, capacity int) (map[string]*sequence.Sequence, error) {
	all := make(map[string]*sequence.Sequence)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}

		var files []string
		if info.IsDir() {
			entries, err := os.ReadDir(p)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				if e.IsDir() || !isSequenceFile(e.Name()) {
					continue
				}
				files = append(files, filepath.Join(p, e.Name()))
			}
			sort.Strings(files)
		} else {
			files = []string{p}
		}

		for _, file := range files {
			sequences, err := LoadFile(file, capacity)
			if err != nil {
				return nil, err
			}
			for name, seq := range sequences {
				if _, exists := all[name]; exists {
					return nil, fmt.Errorf("%s: sequence %q defined twice", file, name)
				}
				all[name] = seq
			}
		}
	}
	return all, nil
}

func isSequenceFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
