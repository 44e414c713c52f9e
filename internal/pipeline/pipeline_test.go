package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"catalogscan/internal/catalog"
	"catalogscan/internal/export"
	"catalogscan/internal/inference"
	"catalogscan/internal/report"
	"catalogscan/internal/scan"
	"catalogscan/internal/schema"
	"catalogscan/internal/sink"
	"catalogscan/internal/store"
	"catalogscan/internal/testsupport"
)

func catalogJSON(category, color string) string {
	return fmt.Sprintf(`{
    "titulo_producto": "Dije Luna Plata",
    "category": %q,
    "style": "Clásico",
    "material": "Plata 925",
    "color": %q,
    "gender": "Mujer",
    "short_description": "<ul><li>Plata 925</li></ul>",
    "long_description": "<p>Atemporal</p>",
    "tags": "dije, luna, plata"
}`, category, color)
}

type reply struct {
	text string
	err  error
}

type fakeGateway struct {
	replies  map[string][]reply
	fallback reply
	calls    map[string]int
	total    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		replies:  make(map[string][]reply),
		fallback: reply{text: "```json\n" + catalogJSON("Bijouterie/Dijes", "Plateado") + "\n```"},
		calls:    make(map[string]int),
	}
}

func (g *fakeGateway) Name() string { return "fake/vision" }

func (g *fakeGateway) Infer(_ context.Context, item scan.Item) (string, error) {
	g.total++
	g.calls[item.ID]++
	if queue := g.replies[item.ID]; len(queue) > 0 {
		g.replies[item.ID] = queue[1:]
		return queue[0].text, queue[0].err
	}
	return g.fallback.text, g.fallback.err
}

type countingCommitter struct {
	inner   Committer
	commits int
}

func (c *countingCommitter) Commit(ctx context.Context, set *catalog.RecordSet) error {
	c.commits++
	return c.inner.Commit(ctx, set)
}

// memSink fails its next `failures` writes.
type memSink struct {
	name     string
	failures int
	writes   int
	last     []string
}

func (s *memSink) Name() string { return s.name }

func (s *memSink) Write(_ context.Context, records []catalog.Record) error {
	s.writes++
	if s.failures > 0 {
		s.failures--
		return errors.New(s.name + " unavailable")
	}
	s.last = s.last[:0]
	for _, rec := range records {
		s.last = append(s.last, rec.Origin)
	}
	return nil
}

type recordingReporter struct {
	outcomes []Outcome
}

func (r *recordingReporter) RunStarted(int, int)             {}
func (r *recordingReporter) ItemStarted(int, int, scan.Item) {}
func (r *recordingReporter) ItemFinished(_, _ int, o Outcome) {
	r.outcomes = append(r.outcomes, o)
}

type harness struct {
	dir        string
	source     string
	storePath  string
	exportPath string
	gateway    *fakeGateway
	reporter   *recordingReporter
	committer  *countingCommitter
	records    *catalog.RecordSet
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	return &harness{
		dir:        dir,
		source:     filepath.Join(dir, "imagenes"),
		storePath:  filepath.Join(dir, "productos.json"),
		exportPath: filepath.Join(dir, "catalogo.xlsx"),
		gateway:    newFakeGateway(),
	}
}

func (h *harness) addImage(t *testing.T, rel string) {
	t.Helper()
	testsupport.WriteImage(t, h.source, rel)
}

// run loads the store from disk, the way a fresh process would, and runs once.
func (h *harness) run(t *testing.T, cfg Config, secondary ...sink.Sink) (Summary, error) {
	t.Helper()
	st := store.New(h.storePath, nil)
	set, err := st.Load()
	if err != nil {
		t.Fatalf("load store: %v", err)
	}
	if len(secondary) == 0 {
		exp, err := export.New(h.exportPath, "")
		if err != nil {
			t.Fatal(err)
		}
		secondary = []sink.Sink{exp, report.New(filepath.Join(h.dir, "catalogo.html"), "Catálogo", "imagenes")}
	}
	h.records = set
	h.reporter = &recordingReporter{}
	h.committer = &countingCommitter{inner: sink.NewWriter(st, secondary...)}
	if cfg.Sleep == nil {
		cfg.Sleep = func(context.Context, time.Duration) error { return nil }
	}
	p, err := New(cfg, Deps{
		Scanner:   &scan.Scanner{Root: h.source, Extensions: []string{".jpg"}},
		Gateway:   h.gateway,
		Validator: schema.New(nil),
		Writer:    h.committer,
		Records:   set,
		Reporter:  h.reporter,
	})
	if err != nil {
		t.Fatal(err)
	}
	return p.Run(context.Background())
}

func (h *harness) stored(t *testing.T) []catalog.Record {
	t.Helper()
	return testsupport.MustLoadStore(t, h.storePath).Records()
}

func TestRunFencedJSONCommitsRecordAndExportRow(t *testing.T) {
	h := newHarness(t)
	h.addImage(t, "ring-01.jpg")

	summary, err := h.run(t, Config{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Done != 1 || len(summary.Failed) != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	records := h.stored(t)
	if len(records) != 1 || records[0].Origin != "ring-01.jpg" || records[0].Category != "Bijouterie/Dijes" {
		t.Fatalf("unexpected store contents %+v", records)
	}
	if records[0].Status != catalog.StatusOK || records[0].Model != "fake/vision" {
		t.Fatalf("unexpected record metadata %+v", records[0])
	}

	f, err := excelize.OpenFile(h.exportPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected exactly one data row, got %d", len(rows)-1)
	}
	if rows[0][2] != "category" || rows[1][2] != "Bijouterie/Dijes" {
		t.Fatalf("category column mismatch: header %v row %v", rows[0], rows[1])
	}
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.addImage(t, "a.jpg")
	h.addImage(t, "sub/b.jpg")

	if _, err := h.run(t, Config{}); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(h.storePath)
	if err != nil {
		t.Fatal(err)
	}
	calls := h.gateway.total

	summary, err := h.run(t, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if h.gateway.total != calls {
		t.Fatalf("second run made %d inference calls", h.gateway.total-calls)
	}
	if h.committer.commits != 0 {
		t.Fatalf("second run committed %d times", h.committer.commits)
	}
	if summary.Skipped != 2 || summary.Done != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	after, err := os.ReadFile(h.storePath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("store changed on idempotent run")
	}
}

func TestRunMalformedResponseCommitsPlaceholderOnce(t *testing.T) {
	h := newHarness(t)
	h.addImage(t, "ring-01.jpg")
	h.gateway.fallback = reply{text: "Lo siento, no puedo analizar esta imagen."}

	summary, err := h.run(t, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Placeholders != 1 || summary.Done != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	records := h.stored(t)
	if len(records) != 1 || records[0].Title != catalog.PlaceholderTitle {
		t.Fatalf("expected placeholder, got %+v", records)
	}
	if records[0].Diagnostic == nil || records[0].Diagnostic.RawResponse != "Lo siento, no puedo analizar esta imagen." {
		t.Fatalf("raw response not preserved: %+v", records[0].Diagnostic)
	}

	if _, err := h.run(t, Config{}); err != nil {
		t.Fatal(err)
	}
	if h.gateway.calls["ring-01.jpg"] != 1 {
		t.Fatalf("placeholder item was retried: %d calls", h.gateway.calls["ring-01.jpg"])
	}
}

func TestRunNewImageCausesExactlyOneCall(t *testing.T) {
	h := newHarness(t)
	h.addImage(t, "a.jpg")
	h.addImage(t, "b.jpg")
	if _, err := h.run(t, Config{}); err != nil {
		t.Fatal(err)
	}
	prior := len(h.stored(t))
	calls := h.gateway.total

	h.addImage(t, "c.jpg")
	if _, err := h.run(t, Config{}); err != nil {
		t.Fatal(err)
	}
	if h.gateway.total-calls != 1 || h.gateway.calls["c.jpg"] != 1 {
		t.Fatalf("expected one new call, got %d", h.gateway.total-calls)
	}
	records := h.stored(t)
	if len(records) != prior+1 {
		t.Fatalf("expected %d records, got %d", prior+1, len(records))
	}
	if diff := cmp.Diff([]string{"a.jpg", "b.jpg", "c.jpg"}, testsupport.StoredOrigins(t, h.storePath)); diff != "" {
		t.Fatalf("insertion order (-want +got):\n%s", diff)
	}
}

func TestRunInferenceFailureLeavesItemPending(t *testing.T) {
	h := newHarness(t)
	h.addImage(t, "a.jpg")
	h.addImage(t, "b.jpg")
	h.gateway.replies["a.jpg"] = []reply{{err: &inference.InferenceError{Item: "a.jpg", Provider: "fake", Op: "request", Err: errors.New("connection refused")}}}

	summary, err := h.run(t, Config{})
	if err != nil {
		t.Fatalf("item failure must not end the run: %v", err)
	}
	if len(summary.Failed) != 1 || summary.Failed[0].Item != "a.jpg" || summary.Failed[0].State != StateInferring {
		t.Fatalf("unexpected failures %+v", summary.Failed)
	}
	if diff := cmp.Diff([]string{"b.jpg"}, testsupport.StoredOrigins(t, h.storePath)); diff != "" {
		t.Fatalf("store contents (-want +got):\n%s", diff)
	}

	if _, err := h.run(t, Config{}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b.jpg", "a.jpg"}, testsupport.StoredOrigins(t, h.storePath)); diff != "" {
		t.Fatalf("failed item not reprocessed (-want +got):\n%s", diff)
	}
}

func TestRunRetriesRetryableInferenceErrors(t *testing.T) {
	h := newHarness(t)
	h.addImage(t, "a.jpg")
	transient := &inference.InferenceError{Item: "a.jpg", Provider: "fake", Op: "status", StatusCode: 503, Retryable: true, Err: errors.New("busy")}
	h.gateway.replies["a.jpg"] = []reply{{err: transient}, {err: transient}}

	var delays []time.Duration
	cfg := Config{
		InferenceAttempts: 3,
		RetryBackoff:      time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}
	summary, err := h.run(t, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Done != 1 || h.gateway.calls["a.jpg"] != 3 {
		t.Fatalf("expected success on third attempt, summary %+v calls %d", summary, h.gateway.calls["a.jpg"])
	}
	if diff := cmp.Diff([]time.Duration{time.Second, 2 * time.Second}, delays); diff != "" {
		t.Fatalf("backoff delays (-want +got):\n%s", diff)
	}
	if h.reporter.outcomes[0].Attempts != 3 {
		t.Fatalf("attempts = %d", h.reporter.outcomes[0].Attempts)
	}
}

func TestRunDoesNotRetryPermanentErrors(t *testing.T) {
	h := newHarness(t)
	h.addImage(t, "a.jpg")
	h.gateway.fallback = reply{err: &inference.InferenceError{Item: "a.jpg", Provider: "fake", Op: "status", StatusCode: 400, Err: errors.New("bad request")}}

	summary, err := h.run(t, Config{InferenceAttempts: 5})
	if err != nil {
		t.Fatal(err)
	}
	if h.gateway.calls["a.jpg"] != 1 || len(summary.Failed) != 1 {
		t.Fatalf("permanent error retried: calls %d summary %+v", h.gateway.calls["a.jpg"], summary)
	}
}

func TestRunEnumViolationReviewPolicy(t *testing.T) {
	h := newHarness(t)
	h.addImage(t, "a.jpg")
	h.gateway.fallback = reply{text: catalogJSON("Bijouterie/Dijes", "Fucsia")}

	summary, err := h.run(t, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Review != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	rec := h.stored(t)[0]
	if rec.Status != catalog.StatusReview || rec.Color != "Fucsia" {
		t.Fatalf("raw value not preserved for review: %+v", rec)
	}
	if rec.Diagnostic == nil || len(rec.Diagnostic.Violations) != 1 || rec.Diagnostic.Violations[0].Field != catalog.FieldColor {
		t.Fatalf("violation not recorded: %+v", rec.Diagnostic)
	}
}

func TestRunEnumViolationRejectPolicy(t *testing.T) {
	h := newHarness(t)
	h.addImage(t, "a.jpg")
	h.gateway.fallback = reply{text: catalogJSON("Bijouterie/Dijes", "Fucsia")}

	summary, err := h.run(t, Config{EnumPolicy: EnumPolicyReject})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Failed) != 1 || summary.Failed[0].State != StateValidating {
		t.Fatalf("unexpected failures %+v", summary.Failed)
	}
	if len(h.stored(t)) != 0 {
		t.Fatal("rejected record was committed")
	}
}

func TestRunRepairsFoldedEnumValues(t *testing.T) {
	h := newHarness(t)
	h.addImage(t, "a.jpg")
	h.gateway.fallback = reply{text: catalogJSON("bijouterie/dijes", "PLATEADO")}

	if _, err := h.run(t, Config{}); err != nil {
		t.Fatal(err)
	}
	rec := h.stored(t)[0]
	if rec.Status != catalog.StatusOK || rec.Category != "Bijouterie/Dijes" || rec.Color != "Plateado" {
		t.Fatalf("values not canonicalized: %+v", rec)
	}
}

func TestRunPrimaryStoreFailureStopsRun(t *testing.T) {
	h := newHarness(t)
	h.addImage(t, "a.jpg")
	h.addImage(t, "b.jpg")

	primary := &memSink{name: "store", failures: 1}
	set, _ := catalog.NewRecordSet(nil)
	committer := &countingCommitter{inner: sink.NewWriter(primary, &memSink{name: "export"})}
	p, err := New(Config{}, Deps{
		Scanner:   &scan.Scanner{Root: h.source, Extensions: []string{".jpg"}},
		Gateway:   h.gateway,
		Validator: schema.New(nil),
		Writer:    committer,
		Records:   set,
	})
	if err != nil {
		t.Fatal(err)
	}
	summary, err := p.Run(context.Background())
	var perr *sink.PersistError
	if !errors.As(err, &perr) || perr.Durable {
		t.Fatalf("expected non-durable PersistError, got %v", err)
	}
	if set.Len() != 0 || set.IsProcessed("a.jpg") {
		t.Fatal("record not rolled back after store failure")
	}
	if h.gateway.calls["b.jpg"] != 0 {
		t.Fatal("run continued after store failure")
	}
	if len(summary.Failed) != 1 || summary.Failed[0].State != StateCommitting {
		t.Fatalf("unexpected failures %+v", summary.Failed)
	}
}

func TestRunSecondarySinkFailureContinues(t *testing.T) {
	h := newHarness(t)
	h.addImage(t, "a.jpg")
	h.addImage(t, "b.jpg")
	flaky := &memSink{name: "export", failures: 1}

	summary, err := h.run(t, Config{}, flaky)
	if err != nil {
		t.Fatalf("secondary failure must not end the run: %v", err)
	}
	if len(summary.Failed) != 1 || summary.Failed[0].Item != "a.jpg" || summary.Done != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if diff := cmp.Diff([]string{"a.jpg", "b.jpg"}, testsupport.StoredOrigins(t, h.storePath)); diff != "" {
		t.Fatalf("store (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.jpg", "b.jpg"}, flaky.last); diff != "" {
		t.Fatalf("secondary sink not caught up (-want +got):\n%s", diff)
	}
}

func TestRunSourceCreated(t *testing.T) {
	h := newHarness(t)
	summary, err := h.run(t, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if !summary.SourceCreated || h.gateway.total != 0 || h.committer.commits != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if _, err := os.Stat(h.storePath); !os.IsNotExist(err) {
		t.Fatal("store must not be written when nothing was processed")
	}
}

func TestRunLimitDefersItems(t *testing.T) {
	h := newHarness(t)
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		h.addImage(t, name)
	}
	summary, err := h.run(t, Config{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Done != 2 || summary.Deferred != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if h.gateway.calls["c.jpg"] != 0 {
		t.Fatal("deferred item processed")
	}
}

func TestRunCancelledBeforeFirstItem(t *testing.T) {
	h := newHarness(t)
	h.addImage(t, "a.jpg")
	set, _ := catalog.NewRecordSet(nil)
	p, err := New(Config{}, Deps{
		Scanner:   &scan.Scanner{Root: h.source, Extensions: []string{".jpg"}},
		Gateway:   h.gateway,
		Validator: schema.New(nil),
		Writer:    sink.NewWriter(&memSink{name: "store"}),
		Records:   set,
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := p.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !summary.Interrupted || h.gateway.total != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestOutcomesFollowStateMachine(t *testing.T) {
	h := newHarness(t)
	for _, name := range []string{"ok.jpg", "bad.jpg", "down.jpg"} {
		h.addImage(t, name)
	}
	h.gateway.replies["bad.jpg"] = []reply{{text: "{not json"}}
	h.gateway.replies["down.jpg"] = []reply{{err: errors.New("socket closed")}}

	if _, err := h.run(t, Config{}); err != nil {
		t.Fatal(err)
	}
	want := map[string][]State{
		"bad.jpg":  {StatePending, StateInferring, StateNormalizing, StateValidating, StateCommitting, StateDone},
		"down.jpg": {StatePending, StateInferring, StateFailed},
		"ok.jpg":   {StatePending, StateInferring, StateNormalizing, StateValidating, StateCommitting, StateDone},
	}
	for _, outcome := range h.reporter.outcomes {
		if diff := cmp.Diff(want[outcome.Item.ID], outcome.History); diff != "" {
			t.Fatalf("%s history (-want +got):\n%s", outcome.Item.ID, diff)
		}
		for i := 1; i < len(outcome.History); i++ {
			if !outcome.History[i-1].CanTransition(outcome.History[i]) {
				t.Fatalf("illegal transition %s -> %s", outcome.History[i-1], outcome.History[i])
			}
		}
	}
}

func TestCommittedRecordsAreUniqueAndClosed(t *testing.T) {
	h := newHarness(t)
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"} {
		h.addImage(t, name)
	}
	h.gateway.replies["b.jpg"] = []reply{{text: catalogJSON("Insumos", "Fucsia")}}
	h.gateway.replies["c.jpg"] = []reply{{text: "nope"}}
	for i := 0; i < 3; i++ {
		if _, err := h.run(t, Config{}); err != nil {
			t.Fatal(err)
		}
	}

	vocab := catalog.DefaultVocabulary()
	seen := make(map[string]bool)
	for _, rec := range h.stored(t) {
		if seen[rec.Origin] {
			t.Fatalf("duplicate origin %s", rec.Origin)
		}
		seen[rec.Origin] = true
		if rec.EffectiveStatus() != catalog.StatusOK {
			continue
		}
		for _, field := range catalog.Fields {
			if !vocab.Contains(field, rec.Get(field)) {
				t.Fatalf("%s: %s=%q outside vocabulary", rec.Origin, field, rec.Get(field))
			}
		}
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 records, got %d", len(seen))
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{6, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffDelay(time.Second, 10*time.Second, tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(attempt=%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
	if got := backoffDelay(0, time.Second, 3); got != 0 {
		t.Fatalf("zero base should disable backoff, got %s", got)
	}
}

func TestNewRequiresDeps(t *testing.T) {
	if _, err := New(Config{}, Deps{}); err == nil {
		t.Fatal("expected error for missing deps")
	}
}
