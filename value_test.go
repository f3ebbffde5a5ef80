package aqua

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueConstructorsAndAccessors(t *testing.T) {
	v := NullValue()
	assert.Equal(t, KindNull, v.Kind())
	assert.True(t, v.IsNull())

	v = BoolValue(true)
	b, ok := v.Bool()
	require.True(t, ok)
	assert.True(t, b)

	v = IntValue(-7)
	i, ok := v.Int()
	require.True(t, ok)
	assert.Equal(t, int64(-7), i)

	v = FloatValue(2.5)
	f, ok := v.Float()
	require.True(t, ok)
	assert.Equal(t, 2.5, f)

	v = TextValue("hi")
	s, ok := v.Text()
	require.True(t, ok)
	assert.Equal(t, "hi", s)

	ch := NewChannel(1)
	v = ChannelValue(ch)
	got, ok := v.ChannelHandle()
	require.True(t, ok)
	assert.Same(t, ch, got)
}

func TestValueAccessorsRejectWrongKind(t *testing.T) {
	v := IntValue(1)
	_, ok := v.Bool()
	assert.False(t, ok)
	_, ok = v.Text()
	assert.False(t, ok)
	_, ok = v.ChannelHandle()
	assert.False(t, ok)
	assert.False(t, v.IsNull())
}

func TestChannelValueNilIsNull(t *testing.T) {
	v := ChannelValue(nil)
	assert.True(t, v.IsNull())
}

func TestValueTypeName(t *testing.T) {
	assert.Equal(t, "null", NullValue().TypeName())
	assert.Equal(t, "bool", BoolValue(false).TypeName())
	assert.Equal(t, "int", IntValue(0).TypeName())
	assert.Equal(t, "float", FloatValue(0).TypeName())
	assert.Equal(t, "string", TextValue("").TypeName())
	assert.Equal(t, "channel", ChannelValue(NewChannel(0)).TypeName())
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "null", NullValue().String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "false", BoolValue(false).String())
	assert.Equal(t, "42", IntValue(42).String())
	assert.Equal(t, "3.5", FloatValue(3.5).String())
	assert.Equal(t, "hello", TextValue("hello").String())
	assert.Equal(t, "channel", ChannelValue(NewChannel(0)).String())
}

func TestValueEqual(t *testing.T) {
	assert.True(t, NullValue().Equal(NullValue()))
	assert.True(t, IntValue(5).Equal(IntValue(5)))
	assert.False(t, IntValue(5).Equal(IntValue(6)))
	assert.True(t, TextValue("a").Equal(TextValue("a")))
	assert.False(t, TextValue("a").Equal(TextValue("b")))

	// Same numeric magnitude, different kind: never equal.
	assert.False(t, IntValue(1).Equal(FloatValue(1)))
	assert.False(t, BoolValue(false).Equal(NullValue()))

	// Channels compare by identity.
	a, b := NewChannel(0), NewChannel(0)
	assert.True(t, ChannelValue(a).Equal(ChannelValue(a)))
	assert.False(t, ChannelValue(a).Equal(ChannelValue(b)))
}
