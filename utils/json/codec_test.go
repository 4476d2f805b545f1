// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package json

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMethodCasing(t *testing.T) {
	tests := []struct {
		method      string
		expected    string
		expectedErr error
	}{
		{method: "info.getOffchainConfig", expected: "info.GetOffchainConfig"},
		{method: "info.GetOffchainConfig", expected: "info.GetOffchainConfig", expectedErr: errUppercaseMethod},
		{method: "noservice", expected: "noservice"},
	}
	for _, test := range tests {
		t.Run(test.method, func(t *testing.T) {
			require := require.New(t)

			body := `{"jsonrpc":"2.0","method":"` + test.method + `","params":{},"id":1}`
			req, err := http.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			require.NoError(err)

			method, err := NewCodec().NewRequest(req).Method()
			require.ErrorIs(err, test.expectedErr)
			require.Equal(test.expected, method)
		})
	}
}
