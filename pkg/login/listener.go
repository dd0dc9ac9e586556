package login

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tendant/loginapp/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Listener is consulted after a login passes every check. Veto returns
// true to allow the login and false to veto it. A listener may set
// result.Reason to explain a veto.
type Listener interface {
	Veto(ctx context.Context, result *LoginResult) bool
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, result *LoginResult) bool

func (f ListenerFunc) Veto(ctx context.Context, result *LoginResult) bool {
	return f(ctx, result)
}

// ListenerRegistration names a listener by module path and function name.
type ListenerRegistration struct {
	ModulePath   string `json:"module_path"`
	FunctionName string `json:"function_name"`
}

func (r ListenerRegistration) String() string {
	return r.ModulePath + "." + r.FunctionName
}

// Catalog holds the listeners that can be registered by name. It is filled
// at startup.
type Catalog struct {
	mu        sync.RWMutex
	listeners map[string]Listener
}

func NewCatalog() *Catalog {
	return &Catalog{listeners: make(map[string]Listener)}
}

func (c *Catalog) Add(modulePath, functionName string, l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[ListenerRegistration{modulePath, functionName}.String()] = l
}

func (c *Catalog) Lookup(reg ListenerRegistration) (Listener, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.listeners[reg.String()]
	return l, ok
}

// Names returns the registered catalog names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := maps.Keys(c.listeners)
	slices.Sort(names)
	return names
}

type ChainMode string

const (
	// ChainModeFirst consults only the first registered listener.
	ChainModeFirst ChainMode = "first"
	// ChainModeAll consults listeners in order until one vetoes.
	ChainModeAll ChainMode = "all"
)

type chainEntry struct {
	reg      ListenerRegistration
	listener Listener
}

// ListenerChain is the ordered, append-only list of login listeners.
type ListenerChain struct {
	mode    ChainMode
	catalog *Catalog

	mu      sync.RWMutex
	entries []chainEntry
}

func NewListenerChain(mode ChainMode, catalog *Catalog) *ListenerChain {
	if mode != ChainModeAll {
		mode = ChainModeFirst
	}
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &ListenerChain{mode: mode, catalog: catalog}
}

func (c *ListenerChain) Mode() ChainMode {
	return c.mode
}

func (c *ListenerChain) Catalog() *Catalog {
	return c.catalog
}

// Register appends a listener. Duplicates are kept.
func (c *ListenerChain) Register(reg ListenerRegistration, l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, chainEntry{reg: reg, listener: l})
	slog.Info("Registered login listener", "listener", reg.String(), "position", len(c.entries))
}

// AddLoginListener registers the catalog listener named by modulePath and
// functionName. Unknown names are rejected.
func (c *ListenerChain) AddLoginListener(modulePath, functionName string) error {
	reg := ListenerRegistration{ModulePath: modulePath, FunctionName: functionName}
	l, ok := c.catalog.Lookup(reg)
	if !ok {
		return errors.Newf(errors.ErrCodeListenerUnknown, "no login listener named %s", reg)
	}
	c.Register(reg, l)
	return nil
}

// Registrations returns the registrations in invocation order.
func (c *ListenerChain) Registrations() []ListenerRegistration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	regs := make([]ListenerRegistration, len(c.entries))
	for i, e := range c.entries {
		regs[i] = e.reg
	}
	return regs
}

// Invoke runs the chain and reports whether the login is allowed. An empty
// chain allows.
func (c *ListenerChain) Invoke(ctx context.Context, result *LoginResult) bool {
	c.mu.RLock()
	entries := make([]chainEntry, len(c.entries))
	copy(entries, c.entries)
	c.mu.RUnlock()

	if len(entries) == 0 {
		return true
	}
	if c.mode == ChainModeFirst {
		entries = entries[:1]
	}

	for _, e := range entries {
		if !c.call(ctx, e, result) {
			slog.Info("Login vetoed by listener", "listener", e.reg.String(), "id", result.ID)
			return false
		}
	}
	return true
}

// call treats a panicking listener as a veto.
func (c *ListenerChain) call(ctx context.Context, e chainEntry, result *LoginResult) (allowed bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Login listener panicked", "listener", e.reg.String(), "panic", fmt.Sprint(r))
			allowed = false
		}
	}()
	return e.listener.Veto(ctx, result)
}
