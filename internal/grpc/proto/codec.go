package proto

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName подтип содержимого gRPC для сообщений пакета
const CodecName = "json"

// Codec сериализует сообщения в JSON
type Codec struct{}

// Marshal сериализует сообщение
func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal десериализует сообщение
func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Name возвращает имя кодека
func (Codec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(Codec{})
}
