package glint_test

import (
	"testing"

	"github.com/glintset/reactive/glint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failOnError(t *testing.T) glint.OnErrorFunc {
	return func(from glint.Reactive, err error) {
		assert.FailNow(t, err.Error())
	}
}

func value[T comparable](t *testing.T, c *glint.ReadonlySignal[T]) T {
	t.Helper()
	v, err := c.Value()
	require.NoError(t, err)
	return v
}

// should drive a chain of computeds lazily
//
//	s -> a -> b -> c
func TestChainRecomputesOncePerRead(t *testing.T) {
	rs := glint.CreateReactiveSystem(failOnError(t))

	var aCount, bCount, cCount int
	s := glint.Signal(rs, 1)
	a := glint.Computed(rs, func(oldValue int) (int, error) {
		aCount++
		return s.Value() + 1, nil
	})
	b := glint.Computed(rs, func(oldValue int) (int, error) {
		bCount++
		av, err := a.Value()
		return av + 1, err
	})
	c := glint.Computed(rs, func(oldValue int) (int, error) {
		cCount++
		bv, err := b.Value()
		return bv + 1, err
	})

	assert.Equal(t, 4, value(t, c))
	assert.Equal(t, 1, aCount)
	assert.Equal(t, 1, bCount)
	assert.Equal(t, 1, cCount)

	// repeated reads hit the cache
	assert.Equal(t, 4, value(t, c))
	assert.Equal(t, 1, cCount)

	s.SetValue(2)
	assert.Equal(t, 5, value(t, c))
	assert.Equal(t, 2, aCount)
	assert.Equal(t, 2, bCount)
	assert.Equal(t, 2, cCount)
}

// diamond: each node recomputes once per write
//
//	    s
//	   / \
//	  a   b
//	   \ /
//	    c
func TestDiamondRecomputesOnce(t *testing.T) {
	rs := glint.CreateReactiveSystem(failOnError(t))

	var aCount, bCount, cCount int
	s := glint.Signal(rs, 1)
	a := glint.Computed(rs, func(oldValue int) (int, error) {
		aCount++
		return s.Value() + 1, nil
	})
	b := glint.Computed(rs, func(oldValue int) (int, error) {
		bCount++
		return s.Value() * 10, nil
	})
	c := glint.Computed(rs, func(oldValue int) (int, error) {
		cCount++
		av, err := a.Value()
		if err != nil {
			return 0, err
		}
		bv, err := b.Value()
		if err != nil {
			return 0, err
		}
		return av + bv, nil
	})

	assert.Equal(t, 12, value(t, c))
	assert.Equal(t, 1, cCount)

	s.SetValue(2)
	assert.Equal(t, 23, value(t, c))
	assert.Equal(t, 2, aCount)
	assert.Equal(t, 2, bCount)
	assert.Equal(t, 2, cCount)
}

// aba: b depends on both s and a, which itself depends on s
//
//	s -> a -> b
//	 \_______/
func TestABARecomputesOnce(t *testing.T) {
	rs := glint.CreateReactiveSystem(failOnError(t))

	var bCount int
	s := glint.Signal(rs, 1)
	a := glint.Computed(rs, func(oldValue int) (int, error) {
		return s.Value() * 2, nil
	})
	b := glint.Computed(rs, func(oldValue int) (int, error) {
		bCount++
		av, err := a.Value()
		return s.Value() + av, err
	})

	assert.Equal(t, 3, value(t, b))
	assert.Equal(t, 1, bCount)

	s.SetValue(2)
	assert.Equal(t, 6, value(t, b))
	assert.Equal(t, 2, bCount)
}

// an equal computed output stops the wave downstream
//
//	s -> isEven -> render
func TestEqualOutputBailsOutDownstream(t *testing.T) {
	rs := glint.CreateReactiveSystem(failOnError(t))

	var isEvenCount, renderCount int
	s := glint.Signal(rs, 2)
	isEven := glint.Computed(rs, func(oldValue bool) (bool, error) {
		isEvenCount++
		return s.Value()%2 == 0, nil
	})
	render := glint.Computed(rs, func(oldValue string) (string, error) {
		renderCount++
		even, err := isEven.Value()
		if err != nil {
			return "", err
		}
		if even {
			return "even", nil
		}
		return "odd", nil
	})

	assert.Equal(t, "even", value(t, render))
	assert.Equal(t, 1, renderCount)

	s.SetValue(4) // still even
	assert.Equal(t, "even", value(t, render))
	assert.Equal(t, 2, isEvenCount)
	assert.Equal(t, 1, renderCount)

	s.SetValue(5)
	assert.Equal(t, "odd", value(t, render))
	assert.Equal(t, 3, isEvenCount)
	assert.Equal(t, 2, renderCount)
}

// getters never run until the first read
func TestComputedIsLazy(t *testing.T) {
	rs := glint.CreateReactiveSystem(failOnError(t))

	var count int
	s := glint.Signal(rs, 1)
	c := glint.Computed(rs, func(oldValue int) (int, error) {
		count++
		return s.Value(), nil
	})

	assert.Equal(t, 0, count)
	s.SetValue(2)
	s.SetValue(3)
	assert.Equal(t, 0, count)

	assert.Equal(t, 3, value(t, c))
	assert.Equal(t, 1, count)
}

// the getter sees its previously cached value
func TestComputedReceivesOldValue(t *testing.T) {
	rs := glint.CreateReactiveSystem(failOnError(t))

	s := glint.Signal(rs, 5)
	var seen []int
	c := glint.Computed(rs, func(oldValue int) (int, error) {
		seen = append(seen, oldValue)
		return s.Value(), nil
	})

	assert.Equal(t, 5, value(t, c))
	s.SetValue(9)
	assert.Equal(t, 9, value(t, c))
	assert.Equal(t, []int{0, 5}, seen)
}

// branch swap drops the edge to the side no longer read
//
//	cond ? a : b
func TestDynamicDependencySwap(t *testing.T) {
	rs := glint.CreateReactiveSystem(failOnError(t))

	var count int
	cond := glint.Signal(rs, true)
	a := glint.Signal(rs, "a1")
	b := glint.Signal(rs, "b1")
	c := glint.Computed(rs, func(oldValue string) (string, error) {
		count++
		if cond.Value() {
			return a.Value(), nil
		}
		return b.Value(), nil
	})

	assert.Equal(t, "a1", value(t, c))
	assert.Equal(t, 1, count)

	// no edge to b yet
	b.SetValue("b2")
	assert.Equal(t, "a1", value(t, c))
	assert.Equal(t, 1, count)

	cond.SetValue(false)
	assert.Equal(t, "b2", value(t, c))
	assert.Equal(t, 2, count)

	// the edge to a is gone now
	a.SetValue("a2")
	assert.Equal(t, "b2", value(t, c))
	assert.Equal(t, 2, count)

	b.SetValue("b3")
	assert.Equal(t, "b3", value(t, c))
	assert.Equal(t, 3, count)
}

// jagged diamond, mixed depths converge
//
//	     s
//	    / \
//	   a   b
//	   |   |
//	   |   c
//	    \ /
//	     d
func TestJaggedDiamond(t *testing.T) {
	rs := glint.CreateReactiveSystem(failOnError(t))

	var dCount int
	s := glint.Signal(rs, 1)
	a := glint.Computed(rs, func(oldValue int) (int, error) {
		return s.Value() + 1, nil
	})
	b := glint.Computed(rs, func(oldValue int) (int, error) {
		return s.Value() + 2, nil
	})
	c := glint.Computed(rs, func(oldValue int) (int, error) {
		bv, err := b.Value()
		return bv + 10, err
	})
	d := glint.Computed(rs, func(oldValue int) (int, error) {
		dCount++
		av, err := a.Value()
		if err != nil {
			return 0, err
		}
		cv, err := c.Value()
		if err != nil {
			return 0, err
		}
		return av + cv, nil
	})

	assert.Equal(t, 15, value(t, d))
	assert.Equal(t, 1, dCount)

	s.SetValue(2)
	assert.Equal(t, 17, value(t, d))
	assert.Equal(t, 2, dCount)
}
