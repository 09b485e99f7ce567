package action_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/HopIT-Hub/macrokey/internal/action"
	"github.com/HopIT-Hub/macrokey/internal/action/mocks"
	"github.com/HopIT-Hub/macrokey/internal/errdef"
)

func enabledScript() *action.Script {
	s := action.NewScript()
	s.Enable()
	return s
}

func repeatKeys(reps int, keys ...string) *action.Instance {
	inst := action.NewInstance(action.KindRepeatKeys)
	inst.Params[0].Value = action.Number(float64(reps))
	inst.Params[1].Value = action.List(keys...)
	return inst
}

func TestKindOf(t *testing.T) {
	id := func(n int) *int { return &n }

	assert.Equal(t, action.KindRepeatKeys, action.KindOf(id(0)))
	assert.Equal(t, action.KindMouseClick, action.KindOf(id(1)))
	assert.Equal(t, action.KindMouseMove, action.KindOf(id(2)))
	assert.Equal(t, action.KindEnterText, action.KindOf(id(3)))
	assert.Equal(t, action.KindUnset, action.KindOf(id(99)))
	assert.Equal(t, action.KindUnset, action.KindOf(id(-1)))
	assert.Equal(t, action.KindUnset, action.KindOf(nil))

	assert.Nil(t, action.KindUnset.ID())
	require.NotNil(t, action.KindEnterText.ID())
	assert.Equal(t, 3, *action.KindEnterText.ID())
}

func TestCatalog(t *testing.T) {
	defs := action.Catalog()
	require.Len(t, defs, 4)

	assert.Equal(t, "Active Key", defs[0].Title)
	assert.Equal(t, []string{"repetitions", "keysArray"}, paramKeys(defs[0].Params))
	assert.Equal(t, []string{"times", "rate"}, paramKeys(defs[1].Params))
	assert.Equal(t, []string{"sensitivity", "times", "rate"}, paramKeys(defs[2].Params))
	assert.Equal(t, []string{"text"}, paramKeys(defs[3].Params))

	// Catalog entries are fresh copies.
	defs[1].Params[0].Value = action.Number(50)
	assert.Equal(t, 1, action.Catalog()[1].Params[0].Value.Int(0))
}

func paramKeys(params []action.Parameter) []string {
	keys := make([]string, len(params))
	for i, p := range params {
		keys[i] = p.Key
	}
	return keys
}

func TestResolveUnknownIsUnset(t *testing.T) {
	id := 99
	inst := action.Resolve(&id, []action.Parameter{{Name: "X", Key: "x", Type: action.TypeNumber, Value: action.Number(1)}})

	assert.Equal(t, action.KindUnset, inst.Kind)
	assert.Empty(t, inst.Params)
	assert.Equal(t, "", inst.Title())
}

func TestResolveCopiesParams(t *testing.T) {
	id := 0
	params := []action.Parameter{
		{Name: "Repetitions", Key: "repetitions", Type: action.TypeNumber, Value: action.Number(3)},
		{Name: "Keys Array", Key: "keysArray", Type: action.TypeKeysArray, Value: action.List("KeyA", "KeyB")},
	}
	inst := action.Resolve(&id, params)
	params[1].Value = action.List("changed")

	assert.Equal(t, action.KindRepeatKeys, inst.Kind)
	assert.Equal(t, "Active Key", inst.Title())
	keys, ok := inst.Params[1].Value.Strings()
	require.True(t, ok)
	assert.Equal(t, []string{"KeyA", "KeyB"}, keys)
}

func TestCloneIsolation(t *testing.T) {
	orig := repeatKeys(2, "KeyA")
	clone := orig.Clone()

	clone.Params[0].Value = action.Number(9)
	clone.Params = append(clone.Params, action.Parameter{Key: "extra"})

	assert.Equal(t, 2, orig.Params[0].Value.Int(0))
	assert.Len(t, orig.Params, 2)
}

func TestValueJSON(t *testing.T) {
	params := []action.Parameter{
		{Name: "N", Key: "n", Type: action.TypeNumber, Value: action.Number(110)},
		{Name: "T", Key: "t", Type: action.TypeText, Value: action.Text("hello")},
		{Name: "L", Key: "l", Type: action.TypeKeysArray, Value: action.List("Control_KeyC", "KeyV")},
		{Name: "E", Key: "e", Type: action.TypeKeysArray, Value: action.List()},
	}
	data, err := json.Marshal(params)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"name":"N","key":"n","type":"number","value":110},
		{"name":"T","key":"t","type":"text","value":"hello"},
		{"name":"L","key":"l","type":"keysArray","value":["Control_KeyC","KeyV"]},
		{"name":"E","key":"e","type":"keysArray","value":[]}
	]`, string(data))

	var back []action.Parameter
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, len(params))
	for i := range params {
		assert.True(t, params[i].Value.Equal(back[i].Value), "param %d", i)
	}
}

func TestValueUnmarshalKeepsForeignShapes(t *testing.T) {
	for _, raw := range []string{`{"a":1}`, `[1,2]`, `true`} {
		var v action.Value
		require.NoError(t, json.Unmarshal([]byte(raw), &v), raw)
		assert.True(t, v.Foreign(), raw)
		assert.False(t, v.IsNumber() || v.IsText() || v.IsList(), raw)

		out, err := json.Marshal(v)
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(out))
	}

	var v action.Value
	require.NoError(t, json.Unmarshal([]byte(`null`), &v))
	assert.False(t, v.IsNumber() || v.IsText() || v.IsList() || v.Foreign())
}

func TestResolveReplacesForeignValuesWithDefaults(t *testing.T) {
	var params []action.Parameter
	require.NoError(t, json.Unmarshal([]byte(`[
		{"name":"Times","key":"times","type":"number","value":true},
		{"name":"Rate","key":"rate","type":"number","value":50},
		{"name":"Odd","key":"odd","type":"number","value":{"x":1}}
	]`), &params))

	id := int(action.KindMouseClick)
	inst := action.Resolve(&id, params)
	require.Len(t, inst.Params, 3)
	assert.Equal(t, 1, inst.Bind()[action.KeyTimes].Int(0))
	assert.Equal(t, 50, inst.Bind()[action.KeyRate].Int(0))
	assert.False(t, inst.Params[2].Value.Foreign())
}

func TestInvokeRepeatKeys(t *testing.T) {
	inj := mocks.NewMockInjector(t)
	inj.On("KeySequence", mock.Anything, []string{"KeyB"}).Return(nil).Times(2)

	err := repeatKeys(2, "KeyB").Invoke(context.Background(), action.Runtime{Script: enabledScript(), Injector: inj})
	require.NoError(t, err)
}

func TestInvokeRepetitionsClampedToOne(t *testing.T) {
	inj := mocks.NewMockInjector(t)
	inj.On("KeySequence", mock.Anything, []string{"KeyB"}).Return(nil).Once()

	err := repeatKeys(0, "KeyB").Invoke(context.Background(), action.Runtime{Script: enabledScript(), Injector: inj})
	require.NoError(t, err)
}

func TestInvokeOtherKinds(t *testing.T) {
	inj := mocks.NewMockInjector(t)
	inj.On("MouseClick", mock.Anything, 1, 110*time.Millisecond).Return(nil).Once()
	inj.On("MouseMove", mock.Anything, 1, 10, 10*time.Millisecond).Return(nil).Once()
	inj.On("Text", mock.Anything, "hi there").Return(nil).Once()

	rt := action.Runtime{Script: enabledScript(), Injector: inj}
	ctx := context.Background()

	require.NoError(t, action.NewInstance(action.KindMouseClick).Invoke(ctx, rt))
	require.NoError(t, action.NewInstance(action.KindMouseMove).Invoke(ctx, rt))

	text := action.NewInstance(action.KindEnterText)
	text.Params[0].Value = action.Text("hi there")
	require.NoError(t, text.Invoke(ctx, rt))

	require.NoError(t, action.NewInstance(action.KindUnset).Invoke(ctx, rt))
}

func TestInvokeScriptInactiveIsNoop(t *testing.T) {
	inj := mocks.NewMockInjector(t)
	rt := action.Runtime{Script: action.NewScript(), Injector: inj}

	err := repeatKeys(3, "KeyA").Invoke(context.Background(), rt)
	require.NoError(t, err)
	inj.AssertNotCalled(t, "KeySequence", mock.Anything, mock.Anything)
}

func TestInvokeWrapsInjectorFailure(t *testing.T) {
	inj := mocks.NewMockInjector(t)
	inj.On("Text", mock.Anything, "").Return(errors.New("no display")).Once()

	err := action.NewInstance(action.KindEnterText).Invoke(context.Background(), action.Runtime{Script: enabledScript(), Injector: inj})
	require.Error(t, err)
	assert.True(t, errdef.Is(err, errdef.CodeExternal))
}

func TestInvokeGuardDropsOverlappingCall(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	inj := mocks.NewMockInjector(t)
	inj.On("KeySequence", mock.Anything, []string{"KeyB"}).
		Run(func(mock.Arguments) {
			started <- struct{}{}
			<-release
		}).
		Return(nil).Once()

	inst := repeatKeys(1, "KeyB")
	rt := action.Runtime{Script: enabledScript(), Injector: inj}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, inst.Invoke(context.Background(), rt))
	}()

	<-started
	assert.True(t, inst.Running())

	// Dropped immediately, never reaches the injector.
	require.NoError(t, inst.Invoke(context.Background(), rt))

	close(release)
	wg.Wait()
	assert.False(t, inst.Running())
}

func TestInvokeDifferentInstancesRunConcurrently(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)

	inj := mocks.NewMockInjector(t)
	inj.On("KeySequence", mock.Anything, []string{"KeyB"}).
		Run(func(mock.Arguments) {
			started <- struct{}{}
			<-release
		}).
		Return(nil).Twice()

	rt := action.Runtime{Script: enabledScript(), Injector: inj}
	a, b := repeatKeys(1, "KeyB"), repeatKeys(1, "KeyB")

	var wg sync.WaitGroup
	for _, inst := range []*action.Instance{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, inst.Invoke(context.Background(), rt))
		}()
	}

	<-started
	<-started
	assert.True(t, a.Running())
	assert.True(t, b.Running())
	close(release)
	wg.Wait()
}

func TestDisableScriptStopsBetweenRepetitions(t *testing.T) {
	script := enabledScript()
	first := make(chan struct{})
	release := make(chan struct{})

	inj := mocks.NewMockInjector(t)
	inj.On("KeySequence", mock.Anything, []string{"KeyZ"}).
		Run(func(mock.Arguments) {
			close(first)
			<-release
		}).
		Return(nil).Once()

	inst := repeatKeys(5, "KeyZ")
	done := make(chan error, 1)
	go func() {
		done <- inst.Invoke(context.Background(), action.Runtime{Script: script, Injector: inj})
	}()

	<-first
	script.Disable()
	close(release)

	require.NoError(t, <-done)
	assert.False(t, inst.Running())
}

func TestStopCancelsRun(t *testing.T) {
	first := make(chan struct{})
	release := make(chan struct{})

	inj := mocks.NewMockInjector(t)
	inj.On("KeySequence", mock.Anything, []string{"KeyZ"}).
		Run(func(mock.Arguments) {
			close(first)
			<-release
		}).
		Return(nil).Once()

	inst := repeatKeys(5, "KeyZ")
	done := make(chan error, 1)
	go func() {
		done <- inst.Invoke(context.Background(), action.Runtime{Script: enabledScript(), Injector: inj})
	}()

	<-first
	inst.Stop()
	close(release)

	require.NoError(t, <-done)
}

func TestScriptToken(t *testing.T) {
	s := action.NewScript()
	assert.False(t, s.Active())
	assert.Error(t, s.Context().Err())

	s.Enable()
	ctx := s.Context()
	assert.True(t, s.Active())
	assert.NoError(t, ctx.Err())

	s.Set(false)
	assert.False(t, s.Active())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	s.Set(true)
	assert.NoError(t, s.Context().Err())
}

func TestGoTakesGuardBeforeReturning(t *testing.T) {
	release := make(chan struct{})
	inj := mocks.NewMockInjector(t)
	inj.On("KeySequence", mock.Anything, []string{"KeyB"}).
		Run(func(mock.Arguments) { <-release }).
		Return(nil).Once()

	inst := repeatKeys(1, "KeyB")
	rt := action.Runtime{Script: enabledScript(), Injector: inj}

	done := make(chan error, 1)
	require.True(t, inst.Go(context.Background(), rt, func(err error) { done <- err }))
	assert.True(t, inst.Running())
	assert.False(t, inst.Go(context.Background(), rt, nil))

	close(release)
	require.NoError(t, <-done)
	assert.False(t, inst.Running())

	assert.False(t, inst.Go(context.Background(), action.Runtime{Script: action.NewScript(), Injector: inj}, nil))
}
