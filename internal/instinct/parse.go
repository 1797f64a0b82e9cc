package instinct

import (
	"math"
	"strconv"
	"strings"
)

const separator = "---"

// block accumulates one header/content pair while scanning.
type block struct {
	inst    *Instinct
	hasKeys bool
	content []string
}

func newBlock() *block {
	return &block{inst: &Instinct{Confidence: DefaultConfidence, Domain: DefaultDomain}}
}

// set applies one header pair to the block.
func (b *block) set(index int, key, value string) error {
	b.hasKeys = true
	switch key {
	case "id":
		b.inst.ID = value
	case "trigger":
		b.inst.Trigger = value
	case "confidence":
		c, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(c) || math.IsInf(c, 0) {
			return &ParseError{Block: index, Key: key, Value: value, Err: ErrInvalidConfidence}
		}
		b.inst.Confidence = c
	case "domain":
		if value != "" {
			b.inst.Domain = value
		}
	case "scope":
		b.inst.Scope = Scope(value)
	default:
		b.inst.Set(key, value)
	}
	return nil
}

func (b *block) finish() *Instinct {
	b.inst.Content = strings.TrimSpace(strings.Join(b.content, "\n"))
	return b.inst
}

// Parse converts instinct file text into records.
//
// Blocks without an id are dropped silently. Text with no separators yields
// no records. A confidence value that is not a finite number fails the whole
// text with a *ParseError.
func Parse(text string) ([]*Instinct, error) {
	var (
		out      []*Instinct
		cur      *block
		inHeader bool
		index    = -1
	)

	emit := func() {
		if cur != nil && cur.hasKeys {
			if inst := cur.finish(); inst.ID != "" {
				out = append(out, inst)
			}
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == separator {
			if inHeader {
				inHeader = false
				continue
			}
			emit()
			inHeader = true
			index++
			cur = newBlock()
			continue
		}

		if inHeader {
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			if err := cur.set(index, strings.TrimSpace(key), unquote(value)); err != nil {
				return nil, err
			}
			continue
		}

		if cur != nil {
			cur.content = append(cur.content, line)
		}
	}
	emit()

	return out, nil
}

// unquote trims whitespace, then surrounding double quotes, then single quotes.
func unquote(v string) string {
	v = strings.TrimSpace(v)
	v = strings.Trim(v, `"`)
	return strings.Trim(v, `'`)
}
