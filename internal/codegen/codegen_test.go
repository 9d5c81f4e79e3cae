package codegen

import (
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestGenerate_Shape(t *testing.T) {
    code, err := Generate()
    require.NoError(t, err)
    assert.Len(t, code, Length)
    for _, r := range code {
        assert.True(t, strings.ContainsRune(alphabet, r), "unexpected character %q", r)
    }
    // no lookalike characters ever
    assert.NotContains(t, code, "I")
    assert.NotContains(t, code, "O")
    assert.NotContains(t, code, "0")
    assert.NotContains(t, code, "1")
}

func TestGenerate_NoDuplicatesAt100k(t *testing.T) {
    const n = 100_000
    seen := make(map[string]struct{}, n)
    for i := 0; i < n; i++ {
        code, err := Generate()
        require.NoError(t, err)
        if _, dup := seen[code]; dup {
            t.Fatalf("duplicate code %q after %d generations", code, i)
        }
        seen[code] = struct{}{}
    }
}
