package secret

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "apikey.txt")

	resolver := New()
	env := map[string]string{}
	resolver.lookupEnv = func(name string) (string, bool) {
		value, ok := env[name]
		return value, ok
	}

	actual, err := resolver.Resolve(ctx, "literal-key-value")
	assert.Nil(t, err)
	assert.EqualValues(t, "literal-key-value", actual, "unknown reference is the key itself")

	env["PLATFORM_KEY"] = "from-env"
	actual, err = resolver.Resolve(ctx, "PLATFORM_KEY")
	assert.Nil(t, err)
	assert.EqualValues(t, "from-env", actual)

	writeFile(t, keyFile, "\nfrom-file  \nsecond line\n")
	env[keyFile] = "shadowed"
	actual, err = resolver.Resolve(ctx, keyFile)
	assert.Nil(t, err)
	assert.EqualValues(t, "from-file", actual, "an existing file wins over the environment")

	_, err = resolver.Resolve(ctx, "  ")
	assert.NotNil(t, err)

	env["EMPTY_KEY"] = "   "
	_, err = resolver.Resolve(ctx, "EMPTY_KEY")
	assert.NotNil(t, err)

	writeFile(t, filepath.Join(dir, "empty.txt"), "\n\n")
	_, err = resolver.Resolve(ctx, filepath.Join(dir, "empty.txt"))
	assert.NotNil(t, err)
}

func writeFile(t *testing.T, location, content string) {
	t.Helper()
	assert.Nil(t, os.WriteFile(location, []byte(content), 0o600))
}
