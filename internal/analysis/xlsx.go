package analysis

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// maxColumn is the last worksheet column Excel allows (XFD).
const maxColumn = 16383

// DefaultMaxEntryBytes caps the decompressed size of a single workbook part.
const DefaultMaxEntryBytes = 256 << 20

var errColumnRange = errors.New("cell reference beyond column XFD")

// workbook is an opened .xlsx archive with its sheet catalog resolved.
type workbook struct {
	name   string
	zr     *zip.Reader
	limit  int64
	sheets []wbSheet
	rels   map[string]string
	shared []string
}

type wbSheet struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	RID     string `xml:"id,attr"`
}

func openWorkbook(name string, data []byte, limit int64) (*workbook, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open xlsx: %w", ErrUnreadable, err)
	}
	if limit <= 0 {
		limit = DefaultMaxEntryBytes
	}
	wb := &workbook{name: name, zr: zr, limit: limit, rels: map[string]string{}}

	var catalog struct {
		Sheets []wbSheet `xml:"sheets>sheet"`
	}
	raw, err := wb.file("xl/workbook.xml")
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := xml.Unmarshal(raw, &catalog); err != nil {
			return nil, fmt.Errorf("%w: parse workbook.xml: %w", ErrUnreadable, err)
		}
	}
	wb.sheets = catalog.Sheets

	var rels struct {
		Items []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	raw, err = wb.file("xl/_rels/workbook.xml.rels")
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := xml.Unmarshal(raw, &rels); err != nil {
			return nil, fmt.Errorf("%w: parse workbook relationships: %w", ErrUnreadable, err)
		}
	}
	for _, r := range rels.Items {
		if r.ID != "" && r.Target != "" {
			wb.rels[r.ID] = r.Target
		}
	}

	var sst struct {
		Items []struct {
			T    string `xml:"t"`
			Runs []struct {
				T string `xml:"t"`
			} `xml:"r"`
		} `xml:"si"`
	}
	raw, err = wb.file("xl/sharedStrings.xml")
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := xml.Unmarshal(raw, &sst); err != nil {
			return nil, fmt.Errorf("%w: parse shared strings: %w", ErrUnreadable, err)
		}
	}
	for _, si := range sst.Items {
		if len(si.Runs) == 0 {
			wb.shared = append(wb.shared, si.T)
			continue
		}
		var b strings.Builder
		for _, r := range si.Runs {
			b.WriteString(r.T)
		}
		wb.shared = append(wb.shared, b.String())
	}
	return wb, nil
}

// file returns the decompressed entry name, or nil when the archive has no
// such entry. Entries larger than the workbook limit are rejected.
func (wb *workbook) file(name string) ([]byte, error) {
	for _, f := range wb.zr.File {
		if f.Name != name {
			continue
		}
		if f.UncompressedSize64 > uint64(wb.limit) {
			return nil, fmt.Errorf("%w: %s expands beyond %d bytes", ErrUnreadable, name, wb.limit)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %w", ErrUnreadable, name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(io.LimitReader(rc, wb.limit+1))
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrUnreadable, name, err)
		}
		if int64(len(b)) > wb.limit {
			return nil, fmt.Errorf("%w: %s expands beyond %d bytes", ErrUnreadable, name, wb.limit)
		}
		return b, nil
	}
	return nil, nil
}

// sheet resolves a sheet by name (case-insensitive) or, when name is empty,
// by 1-based sheetId, falling back to the conventional worksheet path.
func (wb *workbook) sheet(name string, index int) (*sheetRowReader, error) {
	target := ""
	if name != "" {
		for _, s := range wb.sheets {
			if strings.EqualFold(s.Name, name) {
				if rel, ok := wb.rels[s.RID]; ok {
					target = normalizeRelPath(rel)
				}
				break
			}
		}
		if target == "" {
			names := make([]string, len(wb.sheets))
			for i, s := range wb.sheets {
				names[i] = s.Name
			}
			return nil, fmt.Errorf("%w: '%s' in workbook '%s'.\nAvailable sheets: %s",
				ErrSheetNotFound, name, wb.name, strings.Join(names, ", "))
		}
	} else {
		if index <= 0 {
			index = 1
		}
		for _, s := range wb.sheets {
			if s.SheetID == index {
				if rel, ok := wb.rels[s.RID]; ok {
					target = normalizeRelPath(rel)
				}
				break
			}
		}
		if target == "" {
			target = filepath.ToSlash(filepath.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", index)))
		}
	}
	data, err := wb.file(target)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: worksheet %s missing from workbook '%s'", ErrSheetNotFound, target, wb.name)
	}
	return &sheetRowReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: wb.shared}, nil
}

// sheetRowReader streams worksheet rows as string cells, placing each cell at
// the column named by its reference so sparse rows keep their alignment.
type sheetRowReader struct {
	dec    *xml.Decoder
	shared []string
}

// Read returns the next row, or io.EOF after the last one.
func (r *sheetRowReader) Read() ([]string, error) {
	var row []string
	inRow := false
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if err == io.EOF && inRow {
				return row, nil
			}
			return nil, err
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch {
			case se.Name.Local == "row":
				inRow = true
				row = nil
			case inRow && se.Name.Local == "c":
				var ref, typ string
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "r":
						ref = a.Value
					case "t":
						typ = a.Value
					}
				}
				col, err := colIndexFromRef(ref)
				if err != nil {
					return nil, err
				}
				if col < 0 {
					col = len(row)
				}
				if col > maxColumn {
					return nil, fmt.Errorf("%w: row has more than %d cells", errColumnRange, maxColumn+1)
				}
				for len(row) <= col {
					row = append(row, "")
				}
				row[col] = r.cell(typ)
			}
		case xml.EndElement:
			if se.Name.Local == "row" && inRow {
				return row, nil
			}
		}
	}
}

// cell consumes a <c> element and returns its value, resolving shared strings.
func (r *sheetRowReader) cell(typ string) string {
	var val strings.Builder
	depth := 0
	for {
		tok, err := r.dec.Token()
		if err != nil {
			break
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				depth++
			}
		case xml.EndElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				depth--
			}
			if se.Name.Local == "c" {
				return resolveCell(val.String(), typ, r.shared)
			}
		case xml.CharData:
			if depth > 0 {
				val.Write(se)
			}
		}
	}
	return resolveCell(val.String(), typ, r.shared)
}

func resolveCell(v, typ string, shared []string) string {
	if typ != "s" {
		return v
	}
	idx, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || idx < 0 || idx >= len(shared) {
		return ""
	}
	return shared[idx]
}

// colIndexFromRef maps a cell reference such as "C12" to its 0-based column.
// It returns -1 when ref carries no column letters.
func colIndexFromRef(ref string) (int, error) {
	idx := 0
	n := 0
	for _, c := range strings.ToUpper(ref) {
		if c < 'A' || c > 'Z' {
			break
		}
		if n++; n > 3 {
			return 0, fmt.Errorf("%w: %q", errColumnRange, ref)
		}
		idx = idx*26 + int(c-'A'+1)
	}
	if n == 0 {
		return -1, nil
	}
	if idx-1 > maxColumn {
		return 0, fmt.Errorf("%w: %q", errColumnRange, ref)
	}
	return idx - 1, nil
}

// normalizeRelPath converts relationship targets to ZIP entry names, which
// never carry a leading slash and always live under xl/.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return "xl/" + rel
}
