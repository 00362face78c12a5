// Package editor holds the flow being authored. Manager owns the graph,
// tracks unsaved changes, mirrors drafts to a local snapshot store and talks
// to the persistence gateway.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mohitkumar/funnel/logger"
	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/util"
	"go.uber.org/zap"
)

const DEFAULT_SNAPSHOT_INTERVAL = 5 * time.Second
const DEFAULT_START_STEP_ID = "start-1"
const DEFAULT_FLOW_NAME = "New flow"

var ErrStepNotFound = errors.New("step not found")

var defaultStartPosition = model.Position{X: 250, Y: 50}

type Gateway interface {
	Create(ctx context.Context, fl model.Flow) (*model.Flow, error)
	Get(ctx context.Context, id string) (*model.Flow, error)
	Update(ctx context.Context, id string, fl model.Flow) (*model.Flow, error)
}

// StepPatch is a partial update of a step. Nil fields are left alone;
// Properties keys are merged into the current properties.
type StepPatch struct {
	Label      *string
	Position   *model.Position
	Properties map[string]any
}

type Manager struct {
	mu               sync.Mutex
	gateway          Gateway
	snapshots        SnapshotStore
	notifier         Notifier
	newId            util.IdGenerator
	now              func() time.Time
	snapshotInterval time.Duration
	autosaveDelay    time.Duration

	id        string
	name      string
	steps     []model.Step
	links     []model.Link
	dirty     bool
	cleanHash uint64
	hasClean  bool
	loading   bool
	saving    bool
	restored  *Snapshot

	wg        sync.WaitGroup
	ticker    *util.TickWorker
	autoSaver *autoSaver
}

type Option func(*Manager)

func WithSnapshotStore(store SnapshotStore) Option {
	return func(m *Manager) {
		m.snapshots = store
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(m *Manager) {
		m.notifier = notifier
	}
}

func WithIdGenerator(gen util.IdGenerator) Option {
	return func(m *Manager) {
		m.newId = gen
	}
}

func WithSnapshotInterval(interval time.Duration) Option {
	return func(m *Manager) {
		m.snapshotInterval = interval
	}
}

// WithAutosave saves the flow delay after the last change. Zero disables it.
func WithAutosave(delay time.Duration) Option {
	return func(m *Manager) {
		m.autosaveDelay = delay
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New builds a manager. A draft found in the snapshot store is restored
// right away and wins over the first Load of the same flow.
func New(gateway Gateway, opts ...Option) *Manager {
	m := &Manager{
		gateway:          gateway,
		snapshots:        NewMemorySnapshotStore(),
		notifier:         LogNotifier{},
		newId:            util.NewId,
		now:              time.Now,
		snapshotInterval: DEFAULT_SNAPSHOT_INTERVAL,
		steps:            []model.Step{},
		links:            []model.Link{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.markClean()
	m.restoreSnapshot()
	if m.autosaveDelay > 0 {
		m.autoSaver = newAutoSaver(m.autosaveDelay, m.autosave)
	}
	m.ticker = util.NewTickWorker("snapshot", m.snapshotInterval, m.snapshotIfDirty, &m.wg)
	return m
}

func (m *Manager) restoreSnapshot() {
	snapshot, err := m.snapshots.Load(SNAPSHOT_KEY)
	if err != nil {
		logger.Error("error reading draft snapshot", zap.Error(err))
		return
	}
	if snapshot == nil {
		return
	}
	m.applySnapshot(snapshot)
	m.restored = snapshot
	m.notifier.Notify(INFO, "Restored unsaved draft from "+snapshot.Timestamp.Format(time.RFC3339))
}

func (m *Manager) applySnapshot(snapshot *Snapshot) {
	m.id = snapshot.Id
	m.name = snapshot.Name
	m.steps = append([]model.Step{}, snapshot.Steps...)
	m.links = append([]model.Link{}, snapshot.Links...)
	m.hasClean = false
	m.recompute()
}

func (m *Manager) Start() {
	m.ticker.Start()
}

// Close stops background work. Pending autosaves are dropped, one already
// talking to the gateway is waited for.
func (m *Manager) Close() {
	m.ticker.Stop()
	if m.autoSaver != nil {
		m.autoSaver.stop()
	}
	m.wg.Wait()
}

// Load fetches flow id from the gateway. A failed fetch leaves the manager
// editing a fresh default flow with the requested id, so it never fails.
// Calls made while a load is running are ignored.
func (m *Manager) Load(ctx context.Context, id string) {
	m.mu.Lock()
	if m.loading {
		m.mu.Unlock()
		logger.Debug("load already in progress", zap.String("id", id))
		return
	}
	if restored := m.restored; restored != nil {
		m.restored = nil
		if len(restored.Id) == 0 || restored.Id == id {
			m.mu.Unlock()
			logger.Info("using restored draft instead of stored flow", zap.String("id", id))
			return
		}
	}
	m.loading = true
	m.mu.Unlock()

	fl, err := m.gateway.Get(ctx, id)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	if err != nil {
		logger.Error("error loading flow, starting from a default flow", zap.String("id", id), zap.Error(err))
		m.id = id
		m.name = defaultName(id)
		m.steps = []model.Step{defaultStartStep()}
		m.links = []model.Link{}
		m.hasClean = false
		m.recompute()
		return
	}
	m.id = fl.Id
	m.name = fl.Name
	m.steps = append([]model.Step{}, fl.Steps...)
	m.links = append([]model.Link{}, fl.Links...)
	m.markClean()
}

func defaultName(id string) string {
	short := id
	if len(short) > 6 {
		short = short[:6]
	}
	if len(short) == 0 {
		return DEFAULT_FLOW_NAME
	}
	return DEFAULT_FLOW_NAME + " " + short
}

func defaultStartStep() model.Step {
	return model.Step{
		Id:         DEFAULT_START_STEP_ID,
		Kind:       model.START_STEP,
		Label:      model.DefaultLabel(model.START_STEP),
		Position:   defaultStartPosition,
		Properties: model.StartProperties{},
	}
}

// Save creates the flow when it has no id yet and updates it otherwise. A
// call made while another save is running does nothing.
func (m *Manager) Save(ctx context.Context) error {
	m.mu.Lock()
	if m.saving {
		m.mu.Unlock()
		logger.Debug("save already in progress")
		return nil
	}
	m.saving = true
	fl := m.current()
	m.mu.Unlock()

	var saved *model.Flow
	var err error
	if len(fl.Id) == 0 {
		saved, err = m.gateway.Create(ctx, fl)
	} else {
		saved, err = m.gateway.Update(ctx, fl.Id, fl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saving = false
	if err != nil {
		logger.Error("error saving flow", zap.String("id", fl.Id), zap.Error(err))
		return fmt.Errorf("saving flow: %w", err)
	}
	if len(m.id) == 0 && saved != nil {
		m.id = saved.Id
	}
	hash, err := structuralHash(fl.Name, fl.Steps, fl.Links)
	if err == nil {
		m.cleanHash = hash
		m.hasClean = true
	}
	m.recompute()
	if m.dirty {
		m.writeSnapshot()
		if m.autoSaver != nil {
			m.autoSaver.schedule()
		}
	} else if err := m.snapshots.Delete(SNAPSHOT_KEY); err != nil {
		logger.Error("error deleting draft snapshot", zap.Error(err))
	}
	logger.Info("flow saved", zap.String("id", m.id))
	return nil
}

func (m *Manager) autosave() {
	if !m.IsDirty() {
		return
	}
	if err := m.Save(context.Background()); err != nil {
		m.notifier.Notify(ERROR, "Autosave failed: "+err.Error())
	}
}

// AddStep adds step and returns its id. A missing id is generated and a
// missing label defaults for the kind.
func (m *Manager) AddStep(step model.Step) (string, error) {
	if err := model.ValidateStepKind(step.Kind); err != nil {
		return "", err
	}
	if step.Properties == nil {
		props, err := model.NewProperties(step.Kind)
		if err != nil {
			return "", err
		}
		step.Properties = props
	}
	if step.Properties.Kind() != step.Kind {
		return "", fmt.Errorf("step of type %s carries %s properties", step.Kind, step.Properties.Kind())
	}
	if len(step.Label) == 0 {
		step.Label = model.DefaultLabel(step.Kind)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(step.Id) == 0 {
		step.Id = m.newId()
	}
	m.steps = append(m.steps, step)
	m.changed()
	return step.Id, nil
}

func (m *Manager) UpdateStep(id string, patch StepPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.stepIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrStepNotFound, id)
	}
	step := m.steps[idx]
	if patch.Label != nil {
		step.Label = *patch.Label
	}
	if patch.Position != nil {
		step.Position = *patch.Position
	}
	if len(patch.Properties) != 0 {
		props, err := model.MergeProperties(step.Kind, step.Properties, patch.Properties)
		if err != nil {
			return fmt.Errorf("updating step %s: %w", id, err)
		}
		step.Properties = props
	}
	m.steps[idx] = step
	m.changed()
	return nil
}

// RemoveStep removes a step along with every link that starts or ends at it.
func (m *Manager) RemoveStep(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.stepIndex(id)
	if idx < 0 {
		return false
	}
	m.steps = append(m.steps[:idx:idx], m.steps[idx+1:]...)
	links := make([]model.Link, 0, len(m.links))
	for _, l := range m.links {
		if l.Source != id && l.Target != id {
			links = append(links, l)
		}
	}
	m.links = links
	m.changed()
	return true
}

func (m *Manager) AddLink(link model.Link) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(link.Id) == 0 {
		link.Id = m.newId()
	}
	m.links = append(m.links, link)
	m.changed()
	return link.Id
}

func (m *Manager) RemoveLink(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.links {
		if l.Id == id {
			m.links = append(m.links[:i:i], m.links[i+1:]...)
			m.changed()
			return true
		}
	}
	return false
}

func (m *Manager) Rename(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	m.changed()
}

// Reset drops the flow being edited and its draft.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = ""
	m.name = ""
	m.steps = []model.Step{}
	m.links = []model.Link{}
	m.restored = nil
	m.markClean()
	if err := m.snapshots.Delete(SNAPSHOT_KEY); err != nil {
		logger.Error("error deleting draft snapshot", zap.Error(err))
	}
}

// ConfirmExit reports whether the editing session may end. With unsaved
// changes the decision is left to confirm.
func (m *Manager) ConfirmExit(confirm func() bool) bool {
	if !m.IsDirty() {
		return true
	}
	return confirm != nil && confirm()
}

func (m *Manager) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

func (m *Manager) Id() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// Snapshot returns a copy of the flow being edited.
func (m *Manager) Snapshot() model.Flow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current()
}

func (m *Manager) current() model.Flow {
	return model.Flow{
		Id:    m.id,
		Name:  m.name,
		Steps: append([]model.Step{}, m.steps...),
		Links: append([]model.Link{}, m.links...),
	}
}

func (m *Manager) stepIndex(id string) int {
	for i, s := range m.steps {
		if s.Id == id {
			return i
		}
	}
	return -1
}

// changed runs after every mutation with the lock held.
func (m *Manager) changed() {
	m.recompute()
	m.writeSnapshot()
	if m.autoSaver != nil && m.dirty {
		m.autoSaver.schedule()
	}
}

func (m *Manager) markClean() {
	hash, err := structuralHash(m.name, m.steps, m.links)
	if err != nil {
		logger.Error("error hashing flow", zap.Error(err))
		m.hasClean = false
		m.dirty = true
		return
	}
	m.cleanHash = hash
	m.hasClean = true
	m.dirty = false
}

func (m *Manager) recompute() {
	if !m.hasClean {
		m.dirty = true
		return
	}
	hash, err := structuralHash(m.name, m.steps, m.links)
	if err != nil {
		logger.Error("error hashing flow", zap.Error(err))
		m.dirty = true
		return
	}
	m.dirty = hash != m.cleanHash
}

func (m *Manager) writeSnapshot() {
	snapshot := Snapshot{
		Id:        m.id,
		Name:      m.name,
		Steps:     m.steps,
		Links:     m.links,
		Timestamp: m.now().UTC(),
	}
	if err := m.snapshots.Save(SNAPSHOT_KEY, snapshot); err != nil {
		logger.Error("error writing draft snapshot", zap.Error(err))
	}
}

func (m *Manager) snapshotIfDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dirty {
		m.writeSnapshot()
	}
}

type hashedFlow struct {
	Name  string       `json:"name"`
	Steps []model.Step `json:"nodes"`
	Links []model.Link `json:"edges"`
}

func structuralHash(name string, steps []model.Step, links []model.Link) (uint64, error) {
	if steps == nil {
		steps = []model.Step{}
	}
	if links == nil {
		links = []model.Link{}
	}
	return util.StructuralHash(hashedFlow{Name: name, Steps: steps, Links: links})
}
