package sheet

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		want string
	}{
		{"", KindEmpty, ""},
		{"  ", KindEmpty, ""},
		{"42", KindNumber, "42"},
		{"-3.50", KindNumber, "-3.5"},
		{"1e3", KindNumber, "1000"},
		{".5", KindNumber, "0.5"},
		{"NaN", KindText, "NaN"},
		{"inf", KindText, "inf"},
		{"0x10", KindText, "0x10"},
		{" Laptop ", KindText, "Laptop"},
	}
	for _, tt := range tests {
		v := Parse(tt.in)
		require.Equal(t, tt.kind, v.Kind(), tt.in)
		require.Equal(t, tt.want, v.String(), tt.in)
	}
}

func TestValueJSON(t *testing.T) {
	out, err := json.Marshal([]Value{Number(220), Text("A"), Empty(), Number(12.5)})
	require.NoError(t, err)
	require.Equal(t, `[220,"A","",12.5]`, string(out))

	var back []Value
	require.NoError(t, json.Unmarshal([]byte(`[1, "x", null, "7", true]`), &back))
	require.True(t, back[0].IsNumber())
	require.Equal(t, KindText, back[1].Kind())
	require.True(t, back[2].IsEmpty())
	require.True(t, back[3].IsNumber())
	require.Equal(t, "true", back[4].String())
}

func TestRound2(t *testing.T) {
	require.Equal(t, 220.0, Round2(200*1.1))
	require.Equal(t, 1.23, Round2(1.234))
}
