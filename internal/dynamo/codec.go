package dynamo

import (
	"bytes"
	"compress/flate"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
)

// DataAttribute is the publication table attribute holding the
// raw-deflate compressed document body.
const DataAttribute = "data"

// Decompress inflates a raw deflate stream (no zlib header).
func Decompress(compressed []byte) ([]byte, error) {
	reader := flate.NewReader(bytes.NewReader(compressed))
	defer reader.Close()

	plain, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("inflate data: %w", err)
	}
	return plain, nil
}

// Compress deflates plain into a raw deflate stream, the inverse of
// Decompress.
func Compress(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("create deflate writer: %w", err)
	}
	if _, err := writer.Write(plain); err != nil {
		return nil, fmt.Errorf("deflate data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("flush deflate stream: %w", err)
	}
	return buf.Bytes(), nil
}

// InflateData decodes the compressed data attribute of a publication
// item into a JSON document.
func InflateData(item Item) (map[string]interface{}, error) {
	attr, ok := item[DataAttribute]
	if !ok {
		return nil, apperrors.NewValidationError("item has no data attribute")
	}
	binary, ok := attr.(*types.AttributeValueMemberB)
	if !ok {
		return nil, apperrors.NewValidationError("data attribute is not binary").
			WithDetail("type", fmt.Sprintf("%T", attr))
	}

	plain, err := Decompress(binary.Value)
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(plain, &doc); err != nil {
		return nil, fmt.Errorf("decode inflated data: %w", err)
	}
	return doc, nil
}

// DeflateData encodes a JSON document back into the binary attribute
// form stored in the table.
func DeflateData(doc interface{}) (*types.AttributeValueMemberB, error) {
	plain, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode data document: %w", err)
	}
	compressed, err := Compress(plain)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberB{Value: compressed}, nil
}
