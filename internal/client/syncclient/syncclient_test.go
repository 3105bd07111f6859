package syncclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/collabedit/docsync/internal/client/docapi"
	"github.com/collabedit/docsync/internal/client/syncstatus"
)

const ms = time.Millisecond

type recorder struct {
	mu       sync.Mutex
	contents []string
	statuses []syncstatus.State
}

func (r *recorder) content(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contents = append(r.contents, s)
}

func (r *recorder) status(t syncstatus.Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, t.To)
}

func (r *recorder) statusList() []syncstatus.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]syncstatus.State(nil), r.statuses...)
}

func (r *recorder) contentList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.contents...)
}

func newTestClient(remote *fakeRemote) (*Client, *fakeScheduler, *recorder) {
	sched := &fakeScheduler{}
	remote.sched = sched
	rec := &recorder{}
	c := New(remote, Options{
		Scheduler: sched,
		Logger:    zerolog.Nop(),
		OnContent: rec.content,
		OnStatus:  rec.status,
	})
	return c, sched, rec
}

func TestClient_DebounceCoalescesBurst(t *testing.T) {
	remote := &fakeRemote{}
	c, sched, rec := newTestClient(remote)

	for _, text := range []string{"h", "he", "hel", "hell"} {
		c.Edit(text)
		sched.Advance(200 * ms)
	}
	// Last edit at t=600ms; nothing may be saved before t=1600ms.
	sched.Advance(1599*ms - sched.Now())
	if saves := remote.savedContents(); len(saves) != 0 {
		t.Fatalf("expected no save before quiet period, got %+v", saves)
	}

	sched.Advance(1 * ms)
	saves := remote.savedContents()
	if len(saves) != 1 {
		t.Fatalf("expected exactly one save, got %+v", saves)
	}
	if saves[0].content != "hell" || saves[0].at != 1600*ms {
		t.Fatalf("expected \"hell\" saved at 1600ms, got %+v", saves[0])
	}

	sched.Advance(10 * time.Second)
	if len(remote.savedContents()) != 1 {
		t.Fatalf("expected no further saves")
	}

	want := []syncstatus.State{syncstatus.Typing, syncstatus.Typing, syncstatus.Typing, syncstatus.Typing, syncstatus.Saving, syncstatus.Saved}
	if got := rec.statusList(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected statuses %v, got %v", want, got)
	}
}

func TestClient_SaveCarriesContentCapturedAtSchedule(t *testing.T) {
	remote := &fakeRemote{}
	c, sched, _ := newTestClient(remote)

	c.Edit("first")
	sched.Advance(time.Second)
	c.Edit("second")
	sched.Advance(time.Second)

	saves := remote.savedContents()
	if len(saves) != 2 || saves[0].content != "first" || saves[1].content != "second" {
		t.Fatalf("unexpected saves %+v", saves)
	}
}

func TestClient_PollAppliesRemoteContent(t *testing.T) {
	remote := &fakeRemote{content: "server text"}
	c, sched, rec := newTestClient(remote)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	sched.Advance(0)
	if got := c.Snapshot().Content; got != "server text" {
		t.Fatalf("expected immediate first poll, got %q", got)
	}

	remote.set("changed")
	sched.Advance(2 * time.Second)
	if got := c.Snapshot().Content; got != "changed" {
		t.Fatalf("expected poll after interval, got %q", got)
	}
	if got := rec.contentList(); fmt.Sprint(got) != fmt.Sprint([]string{"server text", "changed"}) {
		t.Fatalf("unexpected content notifications %v", got)
	}
	if len(rec.statusList()) != 0 {
		t.Fatalf("polls must not touch status, got %v", rec.statusList())
	}

	// Unchanged content is not re-announced.
	sched.Advance(2 * time.Second)
	if n := len(rec.contentList()); n != 2 {
		t.Fatalf("expected 2 notifications, got %d", n)
	}
}

func TestClient_SuppressesPollWhileEditsUnsaved(t *testing.T) {
	remote := &fakeRemote{content: "v0"}
	c, sched, _ := newTestClient(remote)
	_ = c.Start(context.Background())
	sched.Advance(0)

	sched.Advance(1500 * ms) // t=1.5s
	c.Edit("local")
	remote.set("other client")
	reads := remote.readCount()

	sched.Advance(500 * ms) // poll at t=2s is skipped
	if remote.readCount() != reads {
		t.Fatalf("expected poll skipped while suppressed")
	}
	if got := c.Snapshot().Content; got != "local" {
		t.Fatalf("local edit overwritten: %q", got)
	}

	sched.Advance(500 * ms) // save at t=2.5s clears suppression
	snap := c.Snapshot()
	if snap.SuppressIncoming || snap.Status != syncstatus.Saved {
		t.Fatalf("expected saved and unsuppressed, got %+v", snap)
	}

	remote.set("after save")
	sched.Advance(1500 * ms) // poll at t=4s
	if got := c.Snapshot().Content; got != "after save" {
		t.Fatalf("expected polling to resume, got %q", got)
	}
}

func TestClient_DiscardsStaleRead(t *testing.T) {
	remote := &fakeRemote{content: "old"}
	c, sched, rec := newTestClient(remote)

	gate := make(chan struct{})
	started := make(chan struct{})
	remote.readGate, remote.readStarted = gate, started

	_ = c.Start(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Advance(0)
		close(done)
	}()
	<-started

	// Edit and save both complete while the read is still in flight.
	c.Edit("local")
	sched.Advance(time.Second)
	if snap := c.Snapshot(); snap.SuppressIncoming {
		t.Fatalf("expected suppression cleared by save, got %+v", snap)
	}

	remote.set("old") // the in-flight read answers with pre-edit content
	close(gate)
	<-done

	if got := c.Snapshot().Content; got != "local" {
		t.Fatalf("stale read applied: %q", got)
	}
	if len(rec.contentList()) != 0 {
		t.Fatalf("stale read announced: %v", rec.contentList())
	}
}

func TestClient_SkipsPollWhileReadInFlight(t *testing.T) {
	remote := &fakeRemote{content: "x"}
	c, sched, _ := newTestClient(remote)

	gate := make(chan struct{})
	started := make(chan struct{})
	remote.readGate, remote.readStarted = gate, started

	_ = c.Start(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Advance(0)
		close(done)
	}()
	<-started

	sched.Advance(4 * time.Second)
	if n := remote.readCount(); n != 1 {
		t.Fatalf("expected overlapping polls skipped, got %d reads", n)
	}
	close(gate)
	<-done

	sched.Advance(2 * time.Second)
	if n := remote.readCount(); n != 2 {
		t.Fatalf("expected polling to continue, got %d reads", n)
	}
}

func TestClient_SaveFailure(t *testing.T) {
	remote := &fakeRemote{content: "server", saveErr: fmt.Errorf("%w: 503", docapi.ErrStorageUnavailable)}
	c, sched, rec := newTestClient(remote)

	c.Edit("mine")
	sched.Advance(time.Second)

	snap := c.Snapshot()
	if snap.Status != syncstatus.Error || snap.SuppressIncoming {
		t.Fatalf("expected error status with suppression cleared, got %+v", snap)
	}
	if !errors.Is(snap.LastError, docapi.ErrStorageUnavailable) {
		t.Fatalf("expected last error kept, got %v", snap.LastError)
	}
	if got := rec.statusList(); got[len(got)-1] != syncstatus.Error {
		t.Fatalf("expected final Error status, got %v", got)
	}

	// No automatic retry.
	sched.Advance(10 * time.Second)
	if len(remote.savedContents()) != 0 {
		t.Fatalf("unexpected retry")
	}

	// The next edit starts over from Typing.
	remote.saveErr = nil
	c.Edit("mine again")
	sched.Advance(time.Second)
	if snap := c.Snapshot(); snap.Status != syncstatus.Saved || snap.LastError != nil {
		t.Fatalf("expected recovery, got %+v", snap)
	}
}

func TestClient_PollFailureLeavesStatus(t *testing.T) {
	remote := &fakeRemote{readErr: fmt.Errorf("%w: refused", docapi.ErrNetworkFailure)}
	c, sched, rec := newTestClient(remote)
	_ = c.Start(context.Background())

	sched.Advance(6 * time.Second)
	if n := remote.readCount(); n != 4 {
		t.Fatalf("expected polling to keep going, got %d reads", n)
	}
	if snap := c.Snapshot(); snap.Status != syncstatus.Synced {
		t.Fatalf("expected status unchanged, got %s", snap.Status)
	}
	if len(rec.statusList()) != 0 {
		t.Fatalf("unexpected status events %v", rec.statusList())
	}
}

func TestClient_EditDuringSaveKeepsSuppression(t *testing.T) {
	remote := &fakeRemote{}
	c, sched, _ := newTestClient(remote)

	c.Edit("one")
	remote.onReplace = func() { c.Edit("two") }
	sched.Advance(time.Second)

	snap := c.Snapshot()
	if !snap.SuppressIncoming || snap.Status != syncstatus.Typing {
		t.Fatalf("expected newer edit to keep suppression and Typing, got %+v", snap)
	}

	sched.Advance(time.Second)
	saves := remote.savedContents()
	if len(saves) != 2 || saves[1].content != "two" {
		t.Fatalf("expected second save of newer edit, got %+v", saves)
	}
	if snap := c.Snapshot(); snap.SuppressIncoming || snap.Status != syncstatus.Saved {
		t.Fatalf("expected saved after second save, got %+v", snap)
	}
}

func TestClient_Flush(t *testing.T) {
	remote := &fakeRemote{}
	c, sched, _ := newTestClient(remote)

	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("flush with nothing pending: %v", err)
	}

	c.Edit("draft")
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if saves := remote.savedContents(); len(saves) != 1 || saves[0].content != "draft" {
		t.Fatalf("expected immediate save, got %+v", saves)
	}

	sched.Advance(2 * time.Second)
	if n := len(remote.savedContents()); n != 1 {
		t.Fatalf("flushed save ran again: %d saves", n)
	}
}

func TestClient_Close(t *testing.T) {
	remote := &fakeRemote{content: "a"}
	c, sched, _ := newTestClient(remote)
	_ = c.Start(context.Background())
	sched.Advance(0)

	c.Edit("unsaved")
	c.Close()
	c.Close()

	reads := remote.readCount()
	sched.Advance(10 * time.Second)
	if remote.readCount() != reads || len(remote.savedContents()) != 0 {
		t.Fatalf("expected no activity after close")
	}

	c.Edit("ignored")
	if got := c.Snapshot().Content; got != "unsaved" {
		t.Fatalf("edit after close applied: %q", got)
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestClient_CloseDiscardsInFlightRead(t *testing.T) {
	remote := &fakeRemote{content: "late"}
	c, sched, rec := newTestClient(remote)

	gate := make(chan struct{})
	started := make(chan struct{})
	remote.readGate, remote.readStarted = gate, started

	_ = c.Start(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Advance(0)
		close(done)
	}()
	<-started
	c.Close()
	close(gate)
	<-done

	if got := c.Snapshot().Content; got != "" || len(rec.contentList()) != 0 {
		t.Fatalf("in-flight read applied after close: %q", got)
	}
}

func TestClient_StartTwice(t *testing.T) {
	c, _, _ := newTestClient(&fakeRemote{})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}
