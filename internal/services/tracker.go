package services

import (
	"context"
	"errors"
	"sync"

	"budget/internal/log"
	"budget/internal/render"
	"budget/internal/viewmodel"
)

const (
	MsgCreated = "Transaction added successfully!"
	MsgUpdated = "Transaction updated successfully!"
	MsgDeleted = "Transaction deleted."
)

var (
	// ErrSubmitInFlight rejects a submit while another is running.
	ErrSubmitInFlight = errors.New("submit already in progress")
	// ErrSubmitFailed means the backend refused or could not be reached.
	// The notice explaining why has already been raised.
	ErrSubmitFailed = errors.New("submit failed")
	// ErrEditFailed means the transaction could not be loaded for editing.
	ErrEditFailed = errors.New("edit failed")
)

// Tracker is the event controller. It owns the view-model and serializes
// every action on it.
type Tracker struct {
	mu   sync.Mutex
	vm   *viewmodel.ViewModel
	repo *Repository
	opts render.Options

	notifier Notifier
	logger   *log.Logger
}

// NewTracker builds a controller over repo. Notices go to notifier, or to
// the request's collector when nil.
func NewTracker(repo *Repository, notifier Notifier, opts render.Options) *Tracker {
	if notifier == nil {
		notifier = ContextNotifier{}
	}
	return &Tracker{
		vm:       viewmodel.New(),
		repo:     repo,
		opts:     opts,
		notifier: notifier,
		logger:   log.FromContext(context.Background()).WithComponent(log.ComponentTracker),
	}
}

// Page snapshots the current state for rendering.
func (t *Tracker) Page() render.Page {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pageLocked()
}

// Mode returns the form's current mode.
func (t *Tracker) Mode() viewmodel.Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.vm.Form.Mode
}

// Load is the initial page load: refresh everything and reset the form.
func (t *Tracker) Load(ctx context.Context) render.Page {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshLocked(ctx)
	t.vm.Form.Reset()
	return t.pageLocked()
}

// Refresh refetches transactions and rebuilds balance, list and chart.
// The form is left alone.
func (t *Tracker) Refresh(ctx context.Context) render.Page {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshLocked(ctx)
	return t.pageLocked()
}

// Submit validates fields and creates or updates depending on the mode.
// On success everything is refreshed and the form reset; on failure the
// mode and the entered values are kept.
func (t *Tracker) Submit(ctx context.Context, fields viewmodel.Fields) (render.Page, error) {
	t.mu.Lock()
	if !t.vm.Form.BeginSubmit() {
		page := t.pageLocked()
		t.mu.Unlock()
		t.logger.WarnContext(ctx, "Submit rejected while another is in flight")
		return page, ErrSubmitInFlight
	}
	t.vm.Form.SetFields(fields)
	draft, err := t.vm.Form.Validate(t.opts.Location)
	if err != nil {
		t.vm.Form.EndSubmit()
		page := t.pageLocked()
		t.mu.Unlock()
		t.logger.InfoContext(ctx, "Form validation failed", log.FieldOperation, log.OpValidate, log.FieldError, err)
		t.notifier.Notify(ctx, Notice{Level: NoticeError, Message: viewmodel.ValidationMessage})
		return page, err
	}
	mode := t.vm.Form.Mode
	t.mu.Unlock()

	var (
		ok      bool
		success string
	)
	switch m := mode.(type) {
	case viewmodel.Editing:
		ok = t.repo.Update(ctx, m.ID, draft)
		success = MsgUpdated
	case viewmodel.Creating:
		ok = t.repo.Create(ctx, draft)
		success = MsgCreated
	default:
		panic("services: unknown form mode")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.vm.Form.EndSubmit()
	if !ok {
		return t.pageLocked(), ErrSubmitFailed
	}
	t.refreshLocked(ctx)
	t.vm.Form.Reset()
	t.notifier.Notify(ctx, Notice{Level: NoticeSuccess, Message: success})
	return t.pageLocked(), nil
}

// BeginEdit loads transaction id into the form. The form is left unchanged
// when a submit is in flight (ErrSubmitInFlight) or the load fails
// (ErrEditFailed).
func (t *Tracker) BeginEdit(ctx context.Context, id int64) (render.Page, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.vm.Form.Submitting() {
		return t.pageLocked(), ErrSubmitInFlight
	}
	tx, ok := t.repo.Get(ctx, id)
	if !ok {
		return t.pageLocked(), ErrEditFailed
	}
	t.vm.Form.EnterEditMode(tx, t.opts.Location)
	return t.pageLocked(), nil
}

// Cancel abandons an edit and clears the form. It is refused while a
// submit is in flight; the submit resets the form itself on success.
func (t *Tracker) Cancel() (render.Page, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.vm.Form.Submitting() {
		return t.pageLocked(), ErrSubmitInFlight
	}
	t.vm.Form.Reset()
	return t.pageLocked(), nil
}

// Delete removes transaction id once confirmed. On success the dashboard
// is refreshed; on failure the list is left as it was.
func (t *Tracker) Delete(ctx context.Context, id int64, confirmed bool) (render.Page, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ok := t.repo.Delete(ctx, id, confirmed)
	if ok {
		t.refreshLocked(ctx)
		t.notifier.Notify(ctx, Notice{Level: NoticeSuccess, Message: MsgDeleted})
	}
	return t.pageLocked(), ok
}

func (t *Tracker) refreshLocked(ctx context.Context) {
	txs := t.repo.List(ctx)
	t.vm.Transactions = txs
	t.vm.Chart.Replace(render.NewPieChart(txs, t.opts.Currency))
	t.logger.DebugContext(ctx, "Dashboard refreshed", log.FieldCount, len(txs))
}

func (t *Tracker) pageLocked() render.Page {
	return render.BuildPage(t.vm, t.opts)
}
