// Package app holds the server-side application shell: the single owner of the
// current table, and the grid model the browser widget binds to.
package app

import (
	"context"
	"slices"
	"sync"
	"time"

	"sheetgenie/internal/chat"
	"sheetgenie/internal/diff"
	"sheetgenie/internal/dispatch"
	sgerrors "sheetgenie/internal/errors"
	"sheetgenie/internal/gsheets"
	"sheetgenie/internal/logging"
	"sheetgenie/internal/observability"
	"sheetgenie/internal/sheet"
	"sheetgenie/internal/spreadsheet"
	"sheetgenie/internal/workbook"
)

// SourceKind says where the current table came from.
type SourceKind string

const (
	SourceSample       SourceKind = "sample"
	SourceUpload       SourceKind = "upload"
	SourceGoogleSheets SourceKind = "google_sheets"
	SourceAPI          SourceKind = "api"
	SourceChat         SourceKind = "chat"
	SourceEdit         SourceKind = "edit"
)

// Source describes a revision's origin.
type Source struct {
	Kind SourceKind `json:"kind"`
	Name string     `json:"name,omitempty"`
}

// Revision is one committed table.
type Revision struct {
	Number int          `json:"revision"`
	Source Source       `json:"source"`
	At     time.Time    `json:"at"`
	Table  *sheet.Table `json:"-"`
}

// Snapshot is the shell state shown to clients.
type Snapshot struct {
	Table       *sheet.Table             `json:"-"`
	Data        [][]any                  `json:"data"`
	Rows        int                      `json:"rows"`
	Columns     int                      `json:"columns"`
	Source      Source                   `json:"source"`
	Revision    int                      `json:"revision"`
	ChatVisible bool                     `json:"chat_visible"`
	Formatting  []spreadsheet.Formatting `json:"formatting,omitempty"`
}

// Grid renders the snapshot's table for the grid widget.
func (s Snapshot) Grid() GridSettings {
	g := Grid(s.Table)
	g.Revision = s.Revision
	g.CellFormatting = s.Formatting
	return g
}

// SheetFetcher loads Google Sheets.
type SheetFetcher interface {
	Fetch(ctx context.Context, url string) (*gsheets.Sheet, error)
}

const defaultHistory = 20

// Shell owns the current table. Every mutation goes through its mutex, so
// one actor changes the table at a time; concurrent loads are last write wins.
type Shell struct {
	mu          sync.Mutex
	revisions   []Revision
	next        int
	formats     []spreadsheet.Formatting
	chatVisible bool
	subscribers map[int]chan Snapshot
	nextSub     int

	session *chat.Session
	handler *chat.Handler
	sheets  SheetFetcher
	differ  *diff.Generator
	history int
	metrics *observability.MetricsCollector
	logger  logging.Logger
}

// ShellOption configures a Shell.
type ShellOption func(*Shell)

// WithChat lets the shell run chat turns on its own session.
func WithChat(h *chat.Handler) ShellOption {
	return func(s *Shell) { s.handler = h }
}

func WithSheetFetcher(f SheetFetcher) ShellOption {
	return func(s *Shell) { s.sheets = f }
}

// WithHistory bounds how many revisions are kept.
func WithHistory(n int) ShellOption {
	return func(s *Shell) {
		if n > 1 {
			s.history = n
		}
	}
}

func WithShellMetrics(m *observability.MetricsCollector) ShellOption {
	return func(s *Shell) { s.metrics = m }
}

func WithShellLogger(logger logging.Logger) ShellOption {
	return func(s *Shell) { s.logger = logging.OrNop(logger) }
}

// NewShell starts with the sample table.
func NewShell(opts ...ShellOption) *Shell {
	s := &Shell{
		next:        1,
		chatVisible: true,
		subscribers: map[int]chan Snapshot{},
		session:     chat.NewSession("shell"),
		differ:      diff.NewGenerator(3, false),
		history:     defaultHistory,
		logger:      logging.NewComponentLogger("shell"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.commitLocked(sheet.Sample(), Source{Kind: SourceSample, Name: "Sample sales data"}, true)
	return s
}

// commitLocked installs t as the current table. Formats are dropped when the
// table is replaced wholesale.
func (s *Shell) commitLocked(t *sheet.Table, src Source, replace bool) Snapshot {
	if replace {
		s.formats = nil
	}
	s.revisions = append(s.revisions, Revision{Number: s.next, Source: src, At: time.Now(), Table: t})
	s.next++
	if len(s.revisions) > s.history {
		s.revisions = append([]Revision(nil), s.revisions[len(s.revisions)-s.history:]...)
	}
	s.session.SetTable(t)
	snap := s.snapshotLocked()
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
	return snap
}

func (s *Shell) current() Revision {
	return s.revisions[len(s.revisions)-1]
}

func (s *Shell) snapshotLocked() Snapshot {
	cur := s.current()
	data := make([][]any, 0, cur.Table.Rows()+1)
	for _, row := range cur.Table.Values() {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v.Any()
		}
		data = append(data, cells)
	}
	return Snapshot{
		Table:       cur.Table,
		Data:        data,
		Rows:        cur.Table.Rows(),
		Columns:     cur.Table.Columns(),
		Source:      cur.Source,
		Revision:    cur.Number,
		ChatVisible: s.chatVisible,
		Formatting:  append([]spreadsheet.Formatting(nil), s.formats...),
	}
}

// Snapshot returns the current state.
func (s *Shell) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Table returns the current table.
func (s *Shell) Table() *sheet.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current().Table
}

// Load replaces the table.
func (s *Shell) Load(t *sheet.Table, src Source) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("Loaded %d×%d table from %s %s", t.Rows(), t.Columns(), src.Kind, src.Name)
	return s.commitLocked(t, src, true)
}

// New resets to the sample table.
func (s *Shell) New() Snapshot {
	return s.Load(sheet.Sample(), Source{Kind: SourceSample, Name: "Sample sales data"})
}

// Upload parses a spreadsheet file and loads it. A bad file leaves the table
// unchanged and returns a FileFormatError.
func (s *Shell) Upload(ctx context.Context, name string, data []byte) (Snapshot, error) {
	t, err := workbook.Read(name, data)
	if err != nil {
		s.metrics.RecordIngest(ctx, "upload", "error")
		return Snapshot{}, err
	}
	s.metrics.RecordIngest(ctx, "upload", "success")
	return s.Load(t, Source{Kind: SourceUpload, Name: name}), nil
}

// ImportGoogleSheet fetches a public sheet and loads it.
func (s *Shell) ImportGoogleSheet(ctx context.Context, url string) (*gsheets.Sheet, Snapshot, error) {
	if s.sheets == nil {
		return nil, Snapshot{}, sgerrors.New(sgerrors.CodeUpstreamProvider, "Google Sheets import is not configured")
	}
	fetched, err := s.sheets.Fetch(ctx, url)
	if err != nil {
		return nil, Snapshot{}, err
	}
	return fetched, s.Load(fetched.Table, Source{Kind: SourceGoogleSheets, Name: fetched.Ref.SheetID}), nil
}

// ApplyEdits applies grid edits to the current table.
func (s *Shell) ApplyEdits(edits []Edit) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(edits) == 0 {
		return s.snapshotLocked(), nil
	}
	t, err := ApplyEdits(s.current().Table, edits)
	if err != nil {
		return Snapshot{}, err
	}
	return s.commitLocked(t, Source{Kind: SourceEdit}, false), nil
}

// ApplyResult installs the outcome of a chat turn: a new table becomes a
// revision and cell formatting is remembered for export. Failed results
// change nothing.
func (s *Shell) ApplyResult(res *dispatch.Result) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res == nil || !res.Success {
		return s.snapshotLocked()
	}
	if res.Formatting != nil {
		s.formats = append(s.formats, *res.Formatting)
	}
	if res.Table == nil {
		return s.snapshotLocked()
	}
	s.formats = remapFormats(s.formats, s.current().Table, res.Table)
	return s.commitLocked(res.Table, Source{Kind: SourceChat, Name: string(res.Operation)}, false)
}

// remapFormats moves stored ranges to where their columns sit in after,
// matching columns by header name. A range keeps the columns that survive as
// long as they stay adjacent and in order; otherwise it is dropped.
func remapFormats(formats []spreadsheet.Formatting, before, after *sheet.Table) []spreadsheet.Formatting {
	oldHeader, newHeader := before.Header(), after.Header()
	if len(formats) == 0 || slices.Equal(oldHeader, newHeader) {
		return formats
	}

	// duplicate names pair up in order
	positions := map[string][]int{}
	for i, name := range newHeader {
		positions[name] = append(positions[name], i+1)
	}
	moved := make([]int, len(oldHeader)+1)
	for i, name := range oldHeader {
		if p := positions[name]; len(p) > 0 {
			moved[i+1] = p[0]
			positions[name] = p[1:]
		}
	}

	kept := make([]spreadsheet.Formatting, 0, len(formats))
	for _, f := range formats {
		r, err := sheet.ParseRange(f.Range)
		if err != nil || r.EndCol > len(oldHeader) {
			continue
		}
		var cols []int
		for c := r.StartCol; c <= r.EndCol; c++ {
			if moved[c] > 0 {
				cols = append(cols, moved[c])
			}
		}
		if len(cols) == 0 || cols[len(cols)-1]-cols[0] != len(cols)-1 || !slices.IsSorted(cols) {
			continue
		}
		r.StartCol, r.EndCol = cols[0], cols[len(cols)-1]
		f.Range = r.String()
		kept = append(kept, f)
	}
	return kept
}

// Chat runs one turn on the shell's own session against the current table.
// The model call happens outside the shell lock.
func (s *Shell) Chat(ctx context.Context, text string) (chat.Message, Snapshot, error) {
	if s.handler == nil {
		return chat.Message{}, Snapshot{}, sgerrors.New(sgerrors.CodeUpstreamProvider, "chat is not configured")
	}
	msg, _, err := s.handler.HandleTurn(ctx, s.session, text)
	if err != nil {
		return chat.Message{}, Snapshot{}, err
	}
	return msg, s.ApplyResult(msg.Result), nil
}

// Messages returns the shell session's chat history.
func (s *Shell) Messages() []chat.Message {
	return s.session.Messages()
}

// ResetChat clears the shell session's history.
func (s *Shell) ResetChat() {
	s.session.Reset()
}

// SetChatVisible shows or hides the chat panel.
func (s *Shell) SetChatVisible(visible bool) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatVisible = visible
	return s.snapshotLocked()
}

// Export renders the current table, with remembered formatting, as xlsx.
func (s *Shell) Export() ([]byte, error) {
	s.mu.Lock()
	t := s.current().Table
	formats := append([]spreadsheet.Formatting(nil), s.formats...)
	s.mu.Unlock()
	return workbook.Write(t, formats...)
}

// Diff compares the previous revision with the current one. With a single
// revision the whole table shows as added.
func (s *Shell) Diff() *diff.DiffResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.current()
	var prev *sheet.Table
	if n := len(s.revisions); n > 1 {
		prev = s.revisions[n-2].Table
	}
	return s.differ.GenerateTables(prev, cur.Table, "sheet.csv")
}

// Revisions lists the kept revisions, oldest first.
func (s *Shell) Revisions() []Revision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Revision(nil), s.revisions...)
}

// Subscribe returns a channel that receives a snapshot after every commit.
// Slow subscribers miss snapshots rather than block the shell. Call the
// returned function to unsubscribe.
func (s *Shell) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)
	s.mu.Lock()
	key := s.nextSub
	s.nextSub++
	s.subscribers[key] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, key)
			s.mu.Unlock()
			close(ch)
		})
	}
}
