package config

import (
	"encoding/json"

	"gopkg.in/yaml.v2"
)

// Serializer 定义反序列化接口，支持扩展不同格式
type Serializer interface {
	Unmarshal(data []byte, v interface{}) error // 反序列化
	GetFileExts() []string                      // 支持的文件扩展名（如.yml/.yaml）
	GetName() string                            // 格式名称（如yaml/json）
}

// YAMLSerializer YAML序列化实现
type YAMLSerializer struct{}

func (y *YAMLSerializer) Unmarshal(data []byte, v interface{}) error {
	return yaml.UnmarshalStrict(data, v)
}

func (y *YAMLSerializer) GetFileExts() []string {
	return []string{".yml", ".yaml"}
}

func (y *YAMLSerializer) GetName() string {
	return "yaml"
}

// JSONSerializer JSON序列化实现
type JSONSerializer struct{}

func (j *JSONSerializer) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (j *JSONSerializer) GetFileExts() []string {
	return []string{".json"}
}

func (j *JSONSerializer) GetName() string {
	return "json"
}
