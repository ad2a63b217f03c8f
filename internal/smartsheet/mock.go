package smartsheet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"
)

// BudgetSheetID is the sheet every seeded sheet's "Budget Range" reference points at
const BudgetSheetID int64 = 2222222222222222

// Mock is an in-memory API used in dev mode and tests.
// Unknown sheet IDs are seeded on first access with a small project-tracker
// fixture unless AutoSeed is turned off.
type Mock struct {
	AutoSeed bool

	mu     sync.Mutex
	sheets map[int64]*mockSheet
	order  []int64
	nextID int64
	now    func() time.Time
}

type mockSheet struct {
	sheet       Sheet
	discussions []*Discussion
	attachments []*mockAttachment
}

type mockAttachment struct {
	meta Attachment
	data []byte
}

var mockUser = &User{Name: "Dev User", Email: "dev@example.com"}

// NewMock creates an auto-seeding mock backend
func NewMock() *Mock {
	return &Mock{
		AutoSeed: true,
		sheets:   make(map[int64]*mockSheet),
		nextID:   1000000000000000,
		now:      time.Now,
	}
}

func (m *Mock) id() int64 {
	m.nextID++
	return m.nextID
}

// Seed creates (or replaces) a fixture sheet with the given ID and name
func (m *Mock) Seed(sheetID int64, name string) *Sheet {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.seedLocked(sheetID, name)
	return cloneSheet(&s.sheet)
}

func (m *Mock) seedLocked(sheetID int64, name string) *mockSheet {
	if sheetID == BudgetSheetID {
		return m.seedBudgetLocked()
	}

	cols := []Column{
		{ID: m.id(), Index: 0, Title: "Task Name", Type: ColumnTypeTextNumber, Primary: true},
		{ID: m.id(), Index: 1, Title: "Status", Type: ColumnTypePicklist, Options: []string{"Not Started", "In Progress", "Done"}},
		{ID: m.id(), Index: 2, Title: "Due Date", Type: ColumnTypeDate},
		{ID: m.id(), Index: 3, Title: "Assigned To", Type: ColumnTypeContactList},
		{ID: m.id(), Index: 4, Title: "Budget", Type: ColumnTypeTextNumber},
	}
	tasks := [][]any{
		{"Plan kickoff", "Done", "2026-01-15", "alice@example.com"},
		{"Draft requirements", "In Progress", "2026-02-01", "bob@example.com"},
		{"Review budget", "Not Started", "2026-02-20", "carol@example.com"},
	}

	rows := make([]Row, 0, len(tasks))
	for i, t := range tasks {
		cells := make([]Cell, 0, len(cols))
		for j, v := range t {
			cells = append(cells, Cell{ColumnID: cols[j].ID, Value: v, DisplayValue: fmt.Sprint(v)})
		}
		budget := Cell{ColumnID: cols[4].ID, Value: float64(1000 * (i + 1)), DisplayValue: fmt.Sprint(1000 * (i + 1))}
		if i == len(tasks)-1 {
			budget = Cell{ColumnID: cols[4].ID, Value: float64(4500), DisplayValue: "4500", Formula: "=SUM({Budget Range})"}
		}
		rows = append(rows, Row{ID: m.id(), RowNumber: i + 1, Cells: append(cells, budget)})
	}

	budget := m.seedBudgetLocked()
	ref := CrossSheetReference{
		ID:            m.id(),
		Name:          "Budget Range",
		SourceSheetID: BudgetSheetID,
		StartColumnID: budget.sheet.Columns[1].ID,
		EndColumnID:   budget.sheet.Columns[1].ID,
		Status:        ReferenceStatusOK,
	}

	if name == "" {
		name = fmt.Sprintf("Project Tracker %d", sheetID)
	}
	s := &mockSheet{sheet: Sheet{
		ID:                   sheetID,
		Name:                 name,
		TotalRowCount:        len(rows),
		Columns:              cols,
		Rows:                 rows,
		CrossSheetReferences: []CrossSheetReference{ref},
	}}
	m.put(s)
	return s
}

func (m *Mock) seedBudgetLocked() *mockSheet {
	if s, ok := m.sheets[BudgetSheetID]; ok {
		return s
	}

	cols := []Column{
		{ID: m.id(), Index: 0, Title: "Category", Type: ColumnTypeTextNumber, Primary: true},
		{ID: m.id(), Index: 1, Title: "Amount", Type: ColumnTypeTextNumber},
	}
	var rows []Row
	for i, r := range []struct {
		cat    string
		amount float64
	}{{"Labor", 3000}, {"Tools", 1500}} {
		rows = append(rows, Row{ID: m.id(), RowNumber: i + 1, Cells: []Cell{
			{ColumnID: cols[0].ID, Value: r.cat, DisplayValue: r.cat},
			{ColumnID: cols[1].ID, Value: r.amount, DisplayValue: fmt.Sprint(r.amount)},
		}})
	}

	s := &mockSheet{sheet: Sheet{ID: BudgetSheetID, Name: "Budget", TotalRowCount: len(rows), Columns: cols, Rows: rows}}
	m.put(s)
	return s
}

func (m *Mock) put(s *mockSheet) {
	if _, ok := m.sheets[s.sheet.ID]; !ok {
		m.order = append(m.order, s.sheet.ID)
	}
	m.sheets[s.sheet.ID] = s
}

// lookup returns the sheet, seeding it when AutoSeed is on
func (m *Mock) lookup(sheetID int64) (*mockSheet, error) {
	if s, ok := m.sheets[sheetID]; ok {
		return s, nil
	}
	if !m.AutoSeed || sheetID <= 0 {
		return nil, ErrNotFound{Kind: "sheet", ID: sheetID}
	}
	return m.seedLocked(sheetID, ""), nil
}

func badRequest(code int, format string, args ...any) *APIError {
	return &APIError{StatusCode: http.StatusBadRequest, ErrorCode: code, Message: fmt.Sprintf(format, args...)}
}

// Sheets and rows

func (m *Mock) GetSheet(ctx context.Context, sheetID int64) (*Sheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return nil, err
	}
	return cloneSheet(&s.sheet), nil
}

func (m *Mock) ListSheets(ctx context.Context) ([]SheetSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SheetSummary, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, SheetSummary{ID: id, Name: m.sheets[id].sheet.Name})
	}
	return out, nil
}

func (m *Mock) AddRows(ctx context.Context, sheetID int64, rows []Row) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := s.checkCells(r.Cells); err != nil {
			return nil, err
		}
	}

	added := make([]Row, 0, len(rows))
	for _, r := range rows {
		row := Row{ID: m.id(), RowNumber: len(s.sheet.Rows) + 1, Cells: cloneCells(r.Cells)}
		s.sheet.Rows = append(s.sheet.Rows, row)
		added = append(added, cloneRow(row))
	}
	s.sheet.TotalRowCount = len(s.sheet.Rows)
	return added, nil
}

func (m *Mock) UpdateRows(ctx context.Context, sheetID int64, rows []Row) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return nil, err
	}

	// Validate everything before mutating anything
	targets := make([]int, len(rows))
	for i, r := range rows {
		idx := s.rowIndex(r.ID)
		if idx < 0 {
			return nil, ErrNotFound{Kind: "row", ID: r.ID}
		}
		if err := s.checkCells(r.Cells); err != nil {
			return nil, err
		}
		targets[i] = idx
	}

	updated := make([]Row, 0, len(rows))
	for i, r := range rows {
		row := &s.sheet.Rows[targets[i]]
		for _, c := range r.Cells {
			row.setCell(c)
		}
		updated = append(updated, cloneRow(*row))
	}
	return updated, nil
}

func (m *Mock) DeleteRows(ctx context.Context, sheetID int64, rowIDs []int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return nil, err
	}

	remove := make(map[int64]bool, len(rowIDs))
	for _, id := range rowIDs {
		remove[id] = true
	}

	deleted := []int64{}
	kept := s.sheet.Rows[:0]
	for _, r := range s.sheet.Rows {
		if remove[r.ID] {
			deleted = append(deleted, r.ID)
			continue
		}
		kept = append(kept, r)
	}
	for i := range kept {
		kept[i].RowNumber = i + 1
	}
	s.sheet.Rows = kept
	s.sheet.TotalRowCount = len(kept)
	return deleted, nil
}

// Columns

func (m *Mock) AddColumn(ctx context.Context, sheetID int64, col Column) (*Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return nil, err
	}
	if s.columnByTitle(col.Title) >= 0 {
		return nil, badRequest(1132, "column title %q is already in use", col.Title)
	}

	idx := col.Index
	if idx < 0 || idx > len(s.sheet.Columns) {
		idx = len(s.sheet.Columns)
	}
	col.ID = m.id()
	col.Primary = false
	col.Options = append([]string(nil), col.Options...)

	cols := make([]Column, 0, len(s.sheet.Columns)+1)
	cols = append(cols, s.sheet.Columns[:idx]...)
	cols = append(cols, col)
	cols = append(cols, s.sheet.Columns[idx:]...)
	for i := range cols {
		cols[i].Index = i
	}
	s.sheet.Columns = cols

	out := cols[idx]
	out.Options = append([]string(nil), out.Options...)
	return &out, nil
}

func (m *Mock) UpdateColumn(ctx context.Context, sheetID int64, col Column) (*Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return nil, err
	}
	idx := s.columnIndex(col.ID)
	if idx < 0 {
		return nil, ErrNotFound{Kind: "column", ID: col.ID}
	}
	if other := s.columnByTitle(col.Title); other >= 0 && other != idx {
		return nil, badRequest(1132, "column title %q is already in use", col.Title)
	}

	s.sheet.Columns[idx].Title = col.Title
	out := s.sheet.Columns[idx]
	out.Options = append([]string(nil), out.Options...)
	return &out, nil
}

func (m *Mock) DeleteColumn(ctx context.Context, sheetID, columnID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return err
	}
	idx := s.columnIndex(columnID)
	if idx < 0 {
		return ErrNotFound{Kind: "column", ID: columnID}
	}
	if s.sheet.Columns[idx].Primary {
		return badRequest(1115, "the primary column cannot be deleted")
	}

	s.sheet.Columns = append(s.sheet.Columns[:idx], s.sheet.Columns[idx+1:]...)
	for i := range s.sheet.Columns {
		s.sheet.Columns[i].Index = i
	}
	for i := range s.sheet.Rows {
		cells := s.sheet.Rows[i].Cells[:0]
		for _, c := range s.sheet.Rows[i].Cells {
			if c.ColumnID != columnID {
				cells = append(cells, c)
			}
		}
		s.sheet.Rows[i].Cells = cells
	}
	return nil
}

// Cross-sheet references

func (m *Mock) ListCrossSheetReferences(ctx context.Context, sheetID int64) ([]CrossSheetReference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return nil, err
	}
	return append([]CrossSheetReference{}, s.sheet.CrossSheetReferences...), nil
}

func (m *Mock) CreateCrossSheetReference(ctx context.Context, sheetID int64, ref CrossSheetReference) (*CrossSheetReference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return nil, err
	}
	source, err := m.lookup(ref.SourceSheetID)
	if err != nil {
		return nil, err
	}
	for _, existing := range s.sheet.CrossSheetReferences {
		if existing.Name == ref.Name {
			return nil, badRequest(1279, "a cross-sheet reference named %q already exists", ref.Name)
		}
	}
	for _, colID := range []int64{ref.StartColumnID, ref.EndColumnID} {
		if colID != 0 && source.columnIndex(colID) < 0 {
			return nil, badRequest(1036, "column %d does not exist in sheet %d", colID, ref.SourceSheetID)
		}
	}

	ref.ID = m.id()
	ref.Status = ReferenceStatusOK
	s.sheet.CrossSheetReferences = append(s.sheet.CrossSheetReferences, ref)
	return &ref, nil
}

// Discussions and comments

func (m *Mock) CreateDiscussion(ctx context.Context, sheetID int64, target Target, d Discussion) (*Discussion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return nil, err
	}
	if d.Comment == nil {
		return nil, badRequest(1012, "discussion requires an initial comment")
	}

	disc := &Discussion{ID: m.id(), Title: d.Title, ParentID: sheetID, ParentType: "SHEET"}
	if target.Kind == TargetRow {
		if s.rowIndex(target.ID) < 0 {
			return nil, ErrNotFound{Kind: "row", ID: target.ID}
		}
		disc.ParentID = target.ID
		disc.ParentType = "ROW"
	}
	if disc.Title == "" {
		disc.Title = d.Comment.Text
	}

	disc.Comments = []Comment{{
		ID:           m.id(),
		DiscussionID: disc.ID,
		Text:         d.Comment.Text,
		CreatedBy:    mockUser,
		CreatedAt:    m.now().UTC(),
	}}
	disc.CommentCount = 1
	s.discussions = append(s.discussions, disc)
	return cloneDiscussion(disc, true), nil
}

func (m *Mock) ListDiscussions(ctx context.Context, sheetID int64, target *Target, includeComments bool) ([]Discussion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return nil, err
	}
	if target != nil && target.Kind == TargetRow && s.rowIndex(target.ID) < 0 {
		return nil, ErrNotFound{Kind: "row", ID: target.ID}
	}

	out := []Discussion{}
	for _, d := range s.discussions {
		if target != nil && target.Kind == TargetRow && (d.ParentType != "ROW" || d.ParentID != target.ID) {
			continue
		}
		out = append(out, *cloneDiscussion(d, includeComments))
	}
	return out, nil
}

func (m *Mock) GetDiscussion(ctx context.Context, sheetID, discussionID int64) (*Discussion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return nil, err
	}
	d := s.discussion(discussionID)
	if d == nil {
		return nil, ErrNotFound{Kind: "discussion", ID: discussionID}
	}
	return cloneDiscussion(d, true), nil
}

func (m *Mock) AddComment(ctx context.Context, sheetID, discussionID int64, text string) (*Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return nil, err
	}
	d := s.discussion(discussionID)
	if d == nil {
		return nil, ErrNotFound{Kind: "discussion", ID: discussionID}
	}

	c := Comment{ID: m.id(), DiscussionID: d.ID, Text: text, CreatedBy: mockUser, CreatedAt: m.now().UTC()}
	d.Comments = append(d.Comments, c)
	d.CommentCount = len(d.Comments)
	return &c, nil
}

// DeleteComment removes a comment; a discussion left without comments is removed too
func (m *Mock) DeleteComment(ctx context.Context, sheetID, commentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return err
	}
	for di, d := range s.discussions {
		for ci, c := range d.Comments {
			if c.ID != commentID {
				continue
			}
			d.Comments = append(d.Comments[:ci], d.Comments[ci+1:]...)
			d.CommentCount = len(d.Comments)
			if len(d.Comments) == 0 {
				s.discussions = append(s.discussions[:di], s.discussions[di+1:]...)
			}
			return nil
		}
	}
	return ErrNotFound{Kind: "comment", ID: commentID}
}

// Attachments

func (m *Mock) UploadAttachment(ctx context.Context, sheetID int64, target Target, fileName string, content io.Reader, size int64) (*Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return nil, err
	}

	parentID, parentType := sheetID, "SHEET"
	switch target.Kind {
	case TargetRow:
		if s.rowIndex(target.ID) < 0 {
			return nil, ErrNotFound{Kind: "row", ID: target.ID}
		}
		parentID, parentType = target.ID, "ROW"
	case TargetComment:
		if !s.hasComment(target.ID) {
			return nil, ErrNotFound{Kind: "comment", ID: target.ID}
		}
		parentID, parentType = target.ID, "COMMENT"
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment content: %w", err)
	}

	att := &mockAttachment{
		meta: Attachment{
			ID:             m.id(),
			Name:           fileName,
			AttachmentType: "FILE",
			MimeType:       contentTypeFor(fileName),
			SizeInKb:       (int64(len(data)) + 1023) / 1024,
			ParentID:       parentID,
			ParentType:     parentType,
			CreatedAt:      m.now().UTC(),
		},
		data: data,
	}
	s.attachments = append(s.attachments, att)
	return &att.meta, nil
}

func (m *Mock) ListAttachments(ctx context.Context, sheetID int64, target *Target) ([]Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return nil, err
	}
	if target != nil && target.Kind == TargetRow && s.rowIndex(target.ID) < 0 {
		return nil, ErrNotFound{Kind: "row", ID: target.ID}
	}

	out := []Attachment{}
	for _, a := range s.attachments {
		if target != nil && target.Kind == TargetRow && (a.meta.ParentType != "ROW" || a.meta.ParentID != target.ID) {
			continue
		}
		out = append(out, a.meta)
	}
	return out, nil
}

func (m *Mock) GetAttachment(ctx context.Context, sheetID, attachmentID int64) (*Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.attachment(sheetID, attachmentID)
	if err != nil {
		return nil, err
	}
	meta := a.meta
	meta.URL = fmt.Sprintf("mock://sheets/%d/attachments/%d", sheetID, attachmentID)
	meta.URLExpiresInMs = 120000
	return &meta, nil
}

func (m *Mock) DownloadAttachment(ctx context.Context, sheetID, attachmentID int64, w io.Writer) (*Attachment, error) {
	meta, err := m.GetAttachment(ctx, sheetID, attachmentID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	a, err := m.attachment(sheetID, attachmentID)
	var data []byte
	if err == nil {
		data = bytes.Clone(a.data)
	}
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write attachment: %w", err)
	}
	return meta, nil
}

func (m *Mock) DeleteAttachment(ctx context.Context, sheetID, attachmentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(sheetID)
	if err != nil {
		return err
	}
	for i, a := range s.attachments {
		if a.meta.ID == attachmentID {
			s.attachments = append(s.attachments[:i], s.attachments[i+1:]...)
			return nil
		}
	}
	return ErrNotFound{Kind: "attachment", ID: attachmentID}
}

func (m *Mock) attachment(sheetID, attachmentID int64) (*mockAttachment, error) {
	s, err := m.lookup(sheetID)
	if err != nil {
		return nil, err
	}
	for _, a := range s.attachments {
		if a.meta.ID == attachmentID {
			return a, nil
		}
	}
	return nil, ErrNotFound{Kind: "attachment", ID: attachmentID}
}

// mockSheet helpers

func (s *mockSheet) rowIndex(id int64) int {
	for i, r := range s.sheet.Rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *mockSheet) columnIndex(id int64) int {
	for i, c := range s.sheet.Columns {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *mockSheet) columnByTitle(title string) int {
	for i, c := range s.sheet.Columns {
		if c.Title == title {
			return i
		}
	}
	return -1
}

func (s *mockSheet) checkCells(cells []Cell) error {
	for _, c := range cells {
		if s.columnIndex(c.ColumnID) < 0 {
			return badRequest(1036, "column %d does not exist in sheet %d", c.ColumnID, s.sheet.ID)
		}
	}
	return nil
}

func (s *mockSheet) discussion(id int64) *Discussion {
	for _, d := range s.discussions {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (s *mockSheet) hasComment(id int64) bool {
	for _, d := range s.discussions {
		for _, c := range d.Comments {
			if c.ID == id {
				return true
			}
		}
	}
	return false
}

func (r *Row) setCell(c Cell) {
	c.DisplayValue = fmt.Sprint(c.Value)
	for i := range r.Cells {
		if r.Cells[i].ColumnID == c.ColumnID {
			r.Cells[i] = c
			return
		}
	}
	r.Cells = append(r.Cells, c)
	sort.Slice(r.Cells, func(i, j int) bool { return r.Cells[i].ColumnID < r.Cells[j].ColumnID })
}

// copies

func cloneSheet(s *Sheet) *Sheet {
	out := *s
	out.Columns = make([]Column, len(s.Columns))
	for i, c := range s.Columns {
		c.Options = append([]string(nil), c.Options...)
		out.Columns[i] = c
	}
	out.Rows = make([]Row, len(s.Rows))
	for i, r := range s.Rows {
		out.Rows[i] = cloneRow(r)
	}
	out.CrossSheetReferences = append([]CrossSheetReference(nil), s.CrossSheetReferences...)
	return &out
}

func cloneRow(r Row) Row {
	r.Cells = cloneCells(r.Cells)
	return r
}

func cloneCells(cells []Cell) []Cell {
	return append([]Cell(nil), cells...)
}

func cloneDiscussion(d *Discussion, includeComments bool) *Discussion {
	out := *d
	out.Comment = nil
	out.Comments = nil
	if includeComments {
		out.Comments = append([]Comment{}, d.Comments...)
	}
	return &out
}
