package stimd

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSSE(t *testing.T) {
	r := bytes.NewReader([]byte("[{\"parameter\":\"amplitude\"}]\n\n[{\"parameter\":\"frequency\"}]\n\n"))

	event, err := ReadSSE(r)
	require.NoError(t, err)
	assert.Equal(t, `[{"parameter":"amplitude"}]`, string(event))

	event, err = ReadSSE(r)
	require.NoError(t, err)
	assert.Equal(t, `[{"parameter":"frequency"}]`, string(event))

	_, err = ReadSSE(r)
	assert.ErrorIs(t, err, io.EOF)
}
