package qr

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/payerr"
)

// MaxChunk is the largest payload a single fragment carries.
const MaxChunk = 400

// framePrefix starts every framed fragment: trxsafe:v1:<index>:<total>:<payload>.
const framePrefix = "trxsafe:v1:"

// Fragment is one scanned code.
type Fragment struct {
	Index   int
	Total   int
	Payload string
	Framed  bool
}

// String renders the fragment as it's put into a code.
func (f Fragment) String() string {
	if !f.Framed {
		return f.Payload
	}
	return fmt.Sprintf("%s%d:%d:%s", framePrefix, f.Index, f.Total, f.Payload)
}

// Split cuts payload into fragments of at most MaxChunk characters. A
// payload that fits in one chunk is returned unframed.
func Split(payload string) []string {
	runes := []rune(payload)
	if len(runes) <= MaxChunk {
		return []string{payload}
	}

	total := (len(runes) + MaxChunk - 1) / MaxChunk
	out := make([]string, 0, total)
	for i := 0; i < total; i++ {
		end := (i + 1) * MaxChunk
		if end > len(runes) {
			end = len(runes)
		}
		f := Fragment{
			Index:   i,
			Total:   total,
			Payload: string(runes[i*MaxChunk : end]),
			Framed:  true,
		}
		out = append(out, f.String())
	}

	return out
}

// ParseFragment parses scanned text. Text without the frame prefix is a
// single unframed fragment.
func ParseFragment(text string) (Fragment, error) {
	if !strings.HasPrefix(text, framePrefix) {
		return Fragment{Index: 0, Total: 1, Payload: text}, nil
	}

	parts := strings.SplitN(strings.TrimPrefix(text, framePrefix), ":", 3)
	if len(parts) != 3 {
		return Fragment{}, payerr.Framing("malformed fragment header")
	}

	index, err := strconv.Atoi(parts[0])
	if err != nil {
		return Fragment{}, payerr.Framing("malformed fragment index")
	}
	total, err := strconv.Atoi(parts[1])
	if err != nil {
		return Fragment{}, payerr.Framing("malformed fragment total")
	}
	if total < 1 || index < 0 || index >= total {
		return Fragment{}, payerr.Framing("fragment %d out of range [0,%d)", index, total)
	}

	f := Fragment{
		Index:   index,
		Total:   total,
		Payload: parts[2],
		Framed:  true,
	}

	return f, nil
}

// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// Collector accumulates scanned fragments until the payload is complete.
// The first fragment fixes the total. Dropping the collector discards the
// partial payload.
type Collector struct {
	mu    sync.Mutex
	total int
	parts map[int]string
}

// NewCollector constructs an empty collector.
func NewCollector() *Collector {
	return &Collector{
		parts: make(map[int]string),
	}
}

// Add admits a scanned fragment and reports whether the payload is now
// complete. Admitting an index twice is a no-op.
func (c *Collector) Add(text string) (bool, error) {
	f, err := ParseFragment(text)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.total == 0 {
		c.total = f.Total
	}
	if f.Total != c.total {
		return false, payerr.Framing("inconsistent framing")
	}

	if _, exists := c.parts[f.Index]; !exists {
		c.parts[f.Index] = f.Payload
	}

	return len(c.parts) == c.total, nil
}

// Progress returns how many distinct fragments arrived and how many are
// expected. The total is zero before the first fragment.
func (c *Collector) Progress() (received int, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.parts), c.total
}

// Complete reports whether every fragment arrived.
func (c *Collector) Complete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.total > 0 && len(c.parts) == c.total
}

// Missing returns the indexes still expected.
func (c *Collector) Missing() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var missing []int
	for i := 0; i < c.total; i++ {
		if _, exists := c.parts[i]; !exists {
			missing = append(missing, i)
		}
	}
	return missing
}

// Assemble concatenates the payloads in index order.
func (c *Collector) Assemble() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.total == 0 || len(c.parts) != c.total {
		return "", payerr.Framing("incomplete: %d of %d fragments", len(c.parts), c.total)
	}

	var b strings.Builder
	for i := 0; i < c.total; i++ {
		b.WriteString(c.parts[i])
	}
	return b.String(), nil
}

// Assemble collects fragments in any order and returns the payload.
func Assemble(fragments []string) (string, error) {
	c := NewCollector()
	for _, f := range fragments {
		if _, err := c.Add(f); err != nil {
			return "", err
		}
	}

	return c.Assemble()
}
