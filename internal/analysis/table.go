package analysis

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sabrinalaillita/fpg-strl/internal/mining"
)

var (
	// ErrEmptyTable indicates the input has no header row.
	ErrEmptyTable = errors.New("analysis: table has no header row")
	// ErrColumnNotFound indicates a required column could not be resolved.
	ErrColumnNotFound = errors.New("analysis: column not found")
	// ErrSheetNotFound indicates the requested workbook sheet does not exist.
	ErrSheetNotFound = errors.New("analysis: sheet not found")
	// ErrUnreadable indicates malformed CSV or XLSX content.
	ErrUnreadable = errors.New("analysis: unreadable table")
)

// Options controls how a point-of-sale table is turned into transactions.
type Options struct {
	// Delimiter for CSV. If 0, sniffed from the header line among ',', ';', '\t'.
	Delimiter rune
	// TransactionColumn and ItemColumn name the basket id and item columns.
	// Empty means auto-detect from common header names.
	TransactionColumn string
	ItemColumn        string
	// StatusColumn rows whose value is in ExcludeStatuses are dropped
	// (unpaid, returned, voided lines). Empty means auto-detect.
	StatusColumn    string
	ExcludeStatuses []string
	// QuantityColumn rows with a quantity <= 0 are dropped as returns.
	// Empty means auto-detect.
	QuantityColumn string
	// Lowercase normalizes item casing.
	Lowercase bool
	// MaxRows limits rows processed; 0 means unlimited.
	MaxRows int
	// XLSX sheet selection; SheetIndex is 1-based.
	SheetName  string
	SheetIndex int
	// MaxEntryBytes caps the decompressed size of each XLSX part;
	// 0 means DefaultMaxEntryBytes.
	MaxEntryBytes int64
}

// DefaultOptions returns the cleaning policy used for typical café and
// retail exports.
func DefaultOptions() Options {
	return Options{
		Lowercase:       true,
		ExcludeStatuses: DefaultExcludeStatuses(),
		SheetIndex:      1,
	}
}

// DefaultExcludeStatuses lists payment/line statuses that do not represent a
// completed purchase.
func DefaultExcludeStatuses() []string {
	return []string{
		"unpaid", "not paid", "belum bayar", "belum lunas",
		"returned", "return", "refund", "refunded",
		"void", "voided", "cancelled", "canceled", "batal",
	}
}

// Dataset is a cleaned transaction table.
type Dataset struct {
	Name              string
	Columns           []string
	TransactionColumn string
	ItemColumn        string
	Rows              int
	Processed         int
	Kept              int
	Dropped           map[string]int
	Transactions      []mining.Transaction
	Warnings          []string
}

// Drop reasons recorded in Dataset.Dropped.
const (
	DropBlank     = "blank id or item"
	DropStatus    = "excluded status"
	DropQuantity  = "non-positive quantity"
	DropDuplicate = "duplicate item in basket"
)

var (
	transactionHints = []string{"transaction id", "transaction", "invoice", "order id", "order", "receipt", "bill", "nota", "ticket", "basket"}
	itemHints        = []string{"item name", "item", "product name", "product", "menu", "description", "article", "sku"}
	statusHints      = []string{"payment status", "status", "payment"}
	quantityHints    = []string{"quantity", "qty", "jumlah"}
)

// LoadTransactions reads a CSV/TSV or XLSX export from path.
func LoadTransactions(path string, opt Options) (*Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	return ReadTransactions(filepath.Base(path), b, opt)
}

// ReadTransactions parses an in-memory export. The format is chosen by the
// extension of name: .xlsx is read as a workbook, anything else as
// delimited text.
func ReadTransactions(name string, data []byte, opt Options) (*Dataset, error) {
	if strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		wb, err := openWorkbook(name, data, opt.MaxEntryBytes)
		if err != nil {
			return nil, err
		}
		rows, err := wb.sheet(opt.SheetName, opt.SheetIndex)
		if err != nil {
			return nil, err
		}
		return buildDataset(name, rows, opt)
	}
	br := bufio.NewReader(bytes.NewReader(data))
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name, br)
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.Comma = delim
	return buildDataset(name, r, opt)
}

type rowReader interface {
	Read() ([]string, error)
}

func buildDataset(name string, rr rowReader, opt Options) (*Dataset, error) {
	header, err := rr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrEmptyTable, name)
		}
		return nil, fmt.Errorf("%w: read header: %w", ErrUnreadable, err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTable, name)
	}

	txIdx, err := resolveColumn(cols, opt.TransactionColumn, transactionHints, -1)
	if err != nil {
		return nil, fmt.Errorf("transaction column: %w", err)
	}
	itemIdx, err := resolveColumn(cols, opt.ItemColumn, itemHints, txIdx)
	if err != nil {
		return nil, fmt.Errorf("item column: %w", err)
	}
	if txIdx == itemIdx {
		return nil, fmt.Errorf("%w: transaction and item columns are both %q", ErrColumnNotFound, cols[txIdx])
	}
	statusIdx := optionalColumn(cols, opt.StatusColumn, statusHints, txIdx, itemIdx)
	qtyIdx := optionalColumn(cols, opt.QuantityColumn, quantityHints, txIdx, itemIdx)
	if opt.StatusColumn != "" && statusIdx < 0 {
		return nil, fmt.Errorf("status column: %w: %q", ErrColumnNotFound, opt.StatusColumn)
	}
	if opt.QuantityColumn != "" && qtyIdx < 0 {
		return nil, fmt.Errorf("quantity column: %w: %q", ErrColumnNotFound, opt.QuantityColumn)
	}

	excluded := make(map[string]struct{}, len(opt.ExcludeStatuses))
	for _, s := range opt.ExcludeStatuses {
		excluded[normalizeHeader(s)] = struct{}{}
	}

	ds := &Dataset{
		Name:              name,
		Columns:           cols,
		TransactionColumn: cols[txIdx],
		ItemColumn:        cols[itemIdx],
		Dropped:           map[string]int{},
	}
	maxRows := opt.MaxRows
	byID := map[string]int{}
	seen := map[string]map[string]struct{}{}
	for {
		rec, err := rr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: read row %d: %w", ErrUnreadable, ds.Rows+1, err)
		}
		if isBlankRecord(rec) {
			continue
		}
		ds.Rows++
		if maxRows > 0 && ds.Processed >= maxRows {
			continue
		}
		ds.Processed++

		id := field(rec, txIdx)
		item := strings.Join(strings.Fields(field(rec, itemIdx)), " ")
		if id == "" || item == "" {
			ds.Dropped[DropBlank]++
			continue
		}
		if statusIdx >= 0 {
			if _, bad := excluded[normalizeHeader(field(rec, statusIdx))]; bad {
				ds.Dropped[DropStatus]++
				continue
			}
		}
		if qtyIdx >= 0 {
			if q, ok := parseQuantity(field(rec, qtyIdx)); ok && q <= 0 {
				ds.Dropped[DropQuantity]++
				continue
			}
		}
		if opt.Lowercase {
			item = strings.ToLower(item)
		}
		idx, ok := byID[id]
		if !ok {
			idx = len(ds.Transactions)
			byID[id] = idx
			ds.Transactions = append(ds.Transactions, mining.Transaction{ID: id})
			seen[id] = map[string]struct{}{}
		}
		if _, dup := seen[id][item]; dup {
			ds.Dropped[DropDuplicate]++
			continue
		}
		seen[id][item] = struct{}{}
		ds.Transactions[idx].Items = append(ds.Transactions[idx].Items, item)
		ds.Kept++
	}
	if ds.Processed < ds.Rows {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", ds.Processed, ds.Rows))
	}
	if len(ds.Transactions) == 0 {
		ds.Warnings = append(ds.Warnings, "no transactions left after cleaning")
	}
	return ds, nil
}

// resolveColumn finds the explicitly named column, or the first header that
// matches a hint (exact match first, then substring), skipping skip.
func resolveColumn(cols []string, want string, hints []string, skip int) (int, error) {
	if want != "" {
		key := normalizeHeader(want)
		for i, c := range cols {
			if normalizeHeader(c) == key {
				return i, nil
			}
		}
		return -1, fmt.Errorf("%w: %q (available: %s)", ErrColumnNotFound, want, listColumns(cols))
	}
	if i := detectColumn(cols, hints, skip); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("%w: none of %s matched (available: %s)", ErrColumnNotFound, strings.Join(hints, "/"), listColumns(cols))
}

// maxListedColumns bounds how many headers an error message names.
const maxListedColumns = 20

func listColumns(cols []string) string {
	n := min(len(cols), maxListedColumns)
	names := make([]string, n)
	for i, c := range cols[:n] {
		if r := []rune(c); len(r) > 40 {
			c = string(r[:40]) + "..."
		}
		names[i] = c
	}
	out := strings.Join(names, ", ")
	if len(cols) > n {
		out += fmt.Sprintf(", ... %d more", len(cols)-n)
	}
	return out
}

func optionalColumn(cols []string, want string, hints []string, skip ...int) int {
	if want != "" {
		key := normalizeHeader(want)
		for i, c := range cols {
			if normalizeHeader(c) == key {
				return i
			}
		}
		return -1
	}
	return detectColumn(cols, hints, skip...)
}

func detectColumn(cols []string, hints []string, skip ...int) int {
	skipped := func(i int) bool {
		for _, s := range skip {
			if s == i {
				return true
			}
		}
		return false
	}
	norm := make([]string, len(cols))
	for i, c := range cols {
		norm[i] = normalizeHeader(c)
	}
	for _, h := range hints {
		for i, c := range norm {
			if !skipped(i) && c == h {
				return i
			}
		}
	}
	for _, h := range hints {
		for i, c := range norm {
			if !skipped(i) && strings.Contains(c, h) {
				return i
			}
		}
	}
	return -1
}

// normalizeHeader lowercases s and folds '_', '-' and runs of spaces into a
// single space.
func normalizeHeader(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseQuantity(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// sniffDelimiter picks the separator for name: .tsv is tab, otherwise the
// most frequent of ',', ';' and '\t' on the first line, defaulting to ','.
func sniffDelimiter(name string, br *bufio.Reader) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	peek, _ := br.Peek(4096)
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(peek, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
