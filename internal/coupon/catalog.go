package coupon

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCode = errors.New("invalid discount code")
	ErrNoSources   = errors.New("no discount sources provided")
)

// Resolver turns a code into a discount for a cart. An empty code resolves
// to no discount and no error.
type Resolver interface {
	Resolve(ctx context.Context, code string, subtotal decimal.Decimal, categoryIDs []string) (*models.Discount, error)
}

// Catalog resolves discount codes against rules loaded from CSV sources
type Catalog struct {
	mu      sync.RWMutex
	rules   map[string]Rule
	filter  *bloom.BloomFilter
	sources []string
	client  *http.Client
}

// Stats describes the loaded catalog
type Stats struct {
	Sources      []string `json:"sources"`
	TotalSources int      `json:"total_sources"`
	TotalCodes   int      `json:"total_codes"`
}

// sourceLoadResult holds the result of loading a single source
type sourceLoadResult struct {
	index int
	rules []Rule
	err   error
}

// NewCatalog creates an empty catalog; every code is invalid until Load
func NewCatalog() *Catalog {
	c := &Catalog{
		client: &http.Client{Timeout: 2 * time.Minute},
	}
	c.install(nil, nil)
	return c
}

// NewCatalogFromRules creates a catalog holding exactly the given rules
func NewCatalogFromRules(rules ...Rule) (*Catalog, error) {
	normalized := make([]Rule, len(rules))
	for i, r := range rules {
		r.Code = NormalizeCode(r.Code)
		if err := r.validate(); err != nil {
			return nil, err
		}
		normalized[i] = r
	}
	c := NewCatalog()
	c.install(normalized, nil)
	return c, nil
}

// Load reads every source concurrently and replaces the catalog contents.
// Sources are local paths or http(s) URLs, optionally gzipped. When several
// sources define the same code the later source wins.
func (c *Catalog) Load(ctx context.Context, sources []string) error {
	if len(sources) == 0 {
		return ErrNoSources
	}

	resultChan := make(chan sourceLoadResult, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(index int, source string) {
			defer wg.Done()

			rules, err := c.loadSource(ctx, source)
			resultChan <- sourceLoadResult{index: index, rules: rules, err: err}
		}(i, src)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]sourceLoadResult, len(sources))
	for result := range resultChan {
		results[result.index] = result
	}

	var all []Rule
	for i, result := range results {
		if result.err != nil {
			return fmt.Errorf("failed to load source %d (%s): %w", i+1, sources[i], result.err)
		}
		all = append(all, result.rules...)
	}

	c.install(all, append([]string(nil), sources...))
	return nil
}

func (c *Catalog) install(rules []Rule, sources []string) {
	byCode := make(map[string]Rule, len(rules))
	for _, r := range rules {
		byCode[r.Code] = r
	}

	filter := bloom.NewWithEstimates(uint(max(len(byCode), 1)), 0.01)
	for code := range byCode {
		filter.AddString(code)
	}

	c.mu.Lock()
	c.rules = byCode
	c.filter = filter
	c.sources = sources
	c.mu.Unlock()
}

func (c *Catalog) loadSource(ctx context.Context, source string) ([]Rule, error) {
	body, err := c.open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	r, err := maybeGunzip(body)
	if err != nil {
		return nil, err
	}
	return parseRules(r)
}

func (c *Catalog) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// maybeGunzip detects the gzip magic bytes
func maybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, nil
	}
	return br, nil
}

// parseRules reads CODE,KIND,VALUE[,CATEGORY_ID[,MIN_SUBTOTAL]] records.
// Blank lines, '#' comments and a leading "code,..." header are skipped.
func parseRules(r io.Reader) ([]Rule, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	var rules []Rule
	for first := true; ; first = false {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading file: %w", err)
		}
		if first && strings.EqualFold(strings.TrimSpace(record[0]), "code") {
			continue
		}

		rule, err := parseRecord(record)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func parseRecord(record []string) (Rule, error) {
	if len(record) < 3 || len(record) > 5 {
		return Rule{}, fmt.Errorf("expected 3 to 5 fields, got %d", len(record))
	}

	value, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil {
		return Rule{}, fmt.Errorf("invalid value %q", record[2])
	}

	rule := Rule{
		Code:  NormalizeCode(record[0]),
		Kind:  models.DiscountKind(strings.ToLower(strings.TrimSpace(record[1]))),
		Value: value,
	}
	if len(record) > 3 {
		rule.CategoryID = strings.TrimSpace(record[3])
	}
	if len(record) > 4 && strings.TrimSpace(record[4]) != "" {
		rule.MinSubtotal, err = decimal.NewFromString(strings.TrimSpace(record[4]))
		if err != nil {
			return Rule{}, fmt.Errorf("invalid minimum subtotal %q", record[4])
		}
	}

	if err := rule.validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// Resolve looks the code up and computes its amount for the cart
func (c *Catalog) Resolve(ctx context.Context, code string, subtotal decimal.Decimal, categoryIDs []string) (*models.Discount, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	if !c.filter.TestString(code) {
		c.mu.RUnlock()
		return nil, ErrInvalidCode
	}
	rule, ok := c.rules[code]
	c.mu.RUnlock()

	if !ok || !rule.Eligible(subtotal, categoryIDs) {
		return nil, ErrInvalidCode
	}

	return &models.Discount{
		Code:       rule.Code,
		Kind:       rule.Kind,
		Amount:     rule.Amount(subtotal),
		CategoryID: rule.CategoryID,
	}, nil
}

// Stats returns statistics about loaded codes
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Sources:      append([]string{}, c.sources...),
		TotalSources: len(c.sources),
		TotalCodes:   len(c.rules),
	}
}
