package login

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/loginapp/pkg/errors"
)

type countingListener struct {
	allow bool
	calls int
}

func (l *countingListener) Veto(ctx context.Context, result *LoginResult) bool {
	l.calls++
	return l.allow
}

func passing() *LoginResult {
	return &LoginResult{ID: "alice@example.com", Success: true, TokenFlag: true, Reason: ReasonOK}
}

func TestEmptyChainAllows(t *testing.T) {
	for _, mode := range []ChainMode{ChainModeFirst, ChainModeAll} {
		chain := NewListenerChain(mode, nil)
		assert.True(t, chain.Invoke(context.Background(), passing()), string(mode))
	}
}

func TestNewListenerChainDefaultsToFirst(t *testing.T) {
	assert.Equal(t, ChainModeFirst, NewListenerChain("", nil).Mode())
	assert.Equal(t, ChainModeFirst, NewListenerChain("bogus", nil).Mode())
	assert.Equal(t, ChainModeAll, NewListenerChain(ChainModeAll, nil).Mode())
}

func TestChainModeFirstConsultsOnlyFirst(t *testing.T) {
	tests := []struct {
		name       string
		first      bool
		second     bool
		want       bool
		wantSecond int
	}{
		{name: "first allows second vetoes", first: true, second: false, want: true},
		{name: "first vetoes second allows", first: false, second: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := &countingListener{allow: tt.first}
			second := &countingListener{allow: tt.second}
			chain := NewListenerChain(ChainModeFirst, nil)
			chain.Register(ListenerRegistration{"m", "first"}, first)
			chain.Register(ListenerRegistration{"m", "second"}, second)

			assert.Equal(t, tt.want, chain.Invoke(context.Background(), passing()))
			assert.Equal(t, 1, first.calls)
			assert.Equal(t, 0, second.calls)
		})
	}
}

func TestChainModeAllStopsAtFirstVeto(t *testing.T) {
	first := &countingListener{allow: true}
	second := &countingListener{allow: false}
	third := &countingListener{allow: true}
	chain := NewListenerChain(ChainModeAll, nil)
	chain.Register(ListenerRegistration{"m", "a"}, first)
	chain.Register(ListenerRegistration{"m", "b"}, second)
	chain.Register(ListenerRegistration{"m", "c"}, third)

	assert.False(t, chain.Invoke(context.Background(), passing()))
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls)
}

func TestChainModeAllAllAllow(t *testing.T) {
	a := &countingListener{allow: true}
	b := &countingListener{allow: true}
	chain := NewListenerChain(ChainModeAll, nil)
	chain.Register(ListenerRegistration{"m", "a"}, a)
	chain.Register(ListenerRegistration{"m", "b"}, b)

	assert.True(t, chain.Invoke(context.Background(), passing()))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestPanickingListenerVetoes(t *testing.T) {
	chain := NewListenerChain(ChainModeFirst, nil)
	chain.Register(ListenerRegistration{"m", "boom"}, ListenerFunc(func(ctx context.Context, r *LoginResult) bool {
		panic("listener bug")
	}))

	assert.False(t, chain.Invoke(context.Background(), passing()))
}

func TestAddLoginListener(t *testing.T) {
	catalog := NewCatalog()
	catalog.Add("alerts", "newLogin", &countingListener{allow: true})
	catalog.Add("audit", "record", &countingListener{allow: true})
	chain := NewListenerChain(ChainModeAll, catalog)

	require.NoError(t, chain.AddLoginListener("audit", "record"))
	require.NoError(t, chain.AddLoginListener("alerts", "newLogin"))
	require.NoError(t, chain.AddLoginListener("audit", "record"))

	assert.Equal(t, []ListenerRegistration{
		{"audit", "record"},
		{"alerts", "newLogin"},
		{"audit", "record"},
	}, chain.Registrations())
	assert.Equal(t, []string{"alerts.newLogin", "audit.record"}, catalog.Names())
}

func TestAddLoginListenerUnknown(t *testing.T) {
	chain := NewListenerChain(ChainModeFirst, nil)

	err := chain.AddLoginListener("nope", "missing")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeListenerUnknown))
	assert.Empty(t, chain.Registrations())
}

func TestServiceAddLoginListener(t *testing.T) {
	catalog := NewCatalog()
	catalog.Add("alerts", "newLogin", &countingListener{allow: true})
	svc := NewService(nil, nil, WithListenerChain(NewListenerChain(ChainModeFirst, catalog)))

	require.NoError(t, svc.AddLoginListener("alerts", "newLogin"))
	svc.RegisterListener(ListenerRegistration{"inline", "allow"}, ListenerFunc(func(ctx context.Context, r *LoginResult) bool { return true }))

	assert.Equal(t, []ListenerRegistration{{"alerts", "newLogin"}, {"inline", "allow"}}, svc.Listeners())
}
