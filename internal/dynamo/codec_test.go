package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	plain := []byte(`{"type":"Publication","identifier":"0190abc"}`)

	compressed, err := Compress(plain)
	require.NoError(t, err)
	assert.NotEqual(t, plain, compressed)

	restored, err := Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, plain, restored)
}

func TestInflateDataDecodesDocument(t *testing.T) {
	compressed, err := Compress([]byte(`{"status":"PUBLISHED","entityDescription":{"mainTitle":"A title"}}`))
	require.NoError(t, err)

	doc, err := InflateData(Item{
		DataAttribute: &types.AttributeValueMemberB{Value: compressed},
	})
	require.NoError(t, err)
	assert.Equal(t, "PUBLISHED", doc["status"])
}

func TestInflateDataMissingAttribute(t *testing.T) {
	_, err := InflateData(Item{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestInflateDataWrongAttributeType(t *testing.T) {
	_, err := InflateData(Item{
		DataAttribute: &types.AttributeValueMemberS{Value: "not binary"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestInflateDataGarbage(t *testing.T) {
	_, err := InflateData(Item{
		DataAttribute: &types.AttributeValueMemberB{Value: []byte{0xde, 0xad, 0xbe, 0xef}},
	})
	assert.Error(t, err)
}

func TestDeflateDataRoundTrip(t *testing.T) {
	doc := map[string]interface{}{"identifier": "0190abc", "status": "DRAFT"}

	attr, err := DeflateData(doc)
	require.NoError(t, err)

	restored, err := InflateData(Item{DataAttribute: attr})
	require.NoError(t, err)
	assert.Equal(t, doc, restored)
}
