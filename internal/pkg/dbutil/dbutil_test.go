package dbutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFinalizeRebindsPlaceholders(t *testing.T) {
	query, args := Finalize("SELECT * FROM files WHERE patient_id=? AND id=?", []interface{}{int64(1), int64(2)})
	require.Equal(t, "SELECT * FROM files WHERE patient_id=$1 AND id=$2", query)
	require.Equal(t, []interface{}{int64(1), int64(2)}, args)
}

func TestFinalizeRewritesLimit(t *testing.T) {
	query, args := Finalize("SELECT * FROM summary_pdfs WHERE patient_id=? LIMIT ?,?", []interface{}{int64(5), uint(0), uint(1)})
	require.Equal(t, "SELECT * FROM summary_pdfs WHERE patient_id=$1 LIMIT $2 OFFSET $3", query)
	// gendry emits offset first, postgres wants count first.
	require.Equal(t, []interface{}{int64(5), uint(1), uint(0)}, args)
}
