package inspect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Row is one result row: values keyed by column name, in select order.
type Row struct {
	Columns []string
	Values  []any
}

// MarshalJSON encodes the row as an object, preserving column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the row as a mapping, preserving column order.
func (r Row) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for i, col := range r.Columns {
		var key, val yaml.Node
		if err := key.Encode(col); err != nil {
			return nil, err
		}
		if err := val.Encode(r.Values[i]); err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		node.Content = append(node.Content, &key, &val)
	}
	return node, nil
}

// cellString renders a value for a text table cell.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("x'%x'", x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", x)
	}
}
