package util

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

type EncoderDecoder[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (*T, error)
}

type JsonEncDec[T any] struct{}

var _ EncoderDecoder[any] = new(JsonEncDec[any])

func NewJsonEncoderDecoder[T any]() *JsonEncDec[T] {
	return &JsonEncDec[T]{}
}

func (encdec *JsonEncDec[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (encdec *JsonEncDec[T]) Decode(data []byte) (*T, error) {
	var res T
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// YamlEncDec writes YAML whose keys follow the json tags and custom JSON
// codecs of T, so a YAML document and a JSON document describe T the same way.
type YamlEncDec[T any] struct{}

var _ EncoderDecoder[any] = new(YamlEncDec[any])

func NewYamlEncoderDecoder[T any]() *YamlEncDec[T] {
	return &YamlEncDec[T]{}
}

func (encdec *YamlEncDec[T]) Encode(value T) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

func (encdec *YamlEncDec[T]) Decode(data []byte) (*T, error) {
	converted, err := YamlToJson(data)
	if err != nil {
		return nil, err
	}
	var res T
	if err := json.Unmarshal(converted, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// YamlToJson converts a YAML mapping document to JSON.
func YamlToJson(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("expected a mapping at the top level")
	}
	return json.Marshal(doc)
}
