// Package protobuf implements the message-queue decoder of spec.md
// §4.2.4: a ProtoSchema built from a precompiled FileDescriptorSet
// (protoc output), used to decode a serialized message into an Object
// of UniversalValues.
//
// Schema loading is deliberately scoped to precompiled descriptors: no
// library in this repo's dependency stack parses .proto source text at
// runtime (that is jhump/protoreflect/protocompile territory, absent
// from the corpus), so LoadFileDescriptorSet expects a FileDescriptorSet,
// the artifact `protoc -o x.fds` produces.
package protobuf

import (
	"encoding/json"

	"github.com/pingcap/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

// ProtoSchema wraps a resolved set of message descriptors, keyed by
// fully-qualified message name.
type ProtoSchema struct {
	files    *protoregistry.Files
	messages map[string]protoreflect.MessageDescriptor
}

// LoadFileDescriptorSet parses a precompiled FileDescriptorSet (protoc
// -o output) into a ProtoSchema. TYPE_GROUP fields are rejected per
// spec.md §4.2.4 - proto2 groups have no proto3 equivalent here.
func LoadFileDescriptorSet(data []byte) (*ProtoSchema, error) {
	var fdset descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(data, &fdset); err != nil {
		return nil, errors.Annotate(err, "protobuf: unmarshal FileDescriptorSet")
	}
	files, err := protodesc.NewFiles(&fdset)
	if err != nil {
		return nil, errors.Annotate(err, "protobuf: resolve file descriptor set")
	}

	schema := &ProtoSchema{
		files:    files,
		messages: make(map[string]protoreflect.MessageDescriptor),
	}

	var walkErr error
	files.RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		msgs := fd.Messages()
		for i := 0; i < msgs.Len(); i++ {
			md := msgs.Get(i)
			if err := rejectGroups(md); err != nil {
				walkErr = err
				return false
			}
			schema.messages[string(md.FullName())] = md
		}
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return schema, nil
}

func rejectGroups(md protoreflect.MessageDescriptor) error {
	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		f := fields.Get(i)
		if f.Kind() == protoreflect.GroupKind {
			return errors.Errorf("protobuf: field %s uses TYPE_GROUP, unsupported", f.FullName())
		}
	}
	nested := md.Messages()
	for i := 0; i < nested.Len(); i++ {
		if err := rejectGroups(nested.Get(i)); err != nil {
			return err
		}
	}
	return nil
}

// Message looks up a message descriptor by fully-qualified name.
func (s *ProtoSchema) Message(fullName string) (protoreflect.MessageDescriptor, error) {
	md, ok := s.messages[fullName]
	if !ok {
		return nil, errors.Errorf("protobuf: unknown message %q", fullName)
	}
	return md, nil
}

// DecodeMessage decodes a serialized message against md into an
// Object of UniversalValues (spec.md §4.2.4): bytes fields remain
// Bytes, enums become Enum, nested messages recurse into Object.
func DecodeMessage(data []byte, md protoreflect.MessageDescriptor) (types.UniversalValue, error) {
	msg := dynamicpb.NewMessage(md)
	if err := proto.Unmarshal(data, msg); err != nil {
		return types.UniversalValue{}, errors.Annotate(err, "protobuf: unmarshal message")
	}
	return decodeDynamicMessage(msg), nil
}

func decodeDynamicMessage(msg *dynamicpb.Message) types.UniversalValue {
	fields := make(map[string]types.UniversalValue)
	msg.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		fields[string(fd.Name())] = decodeFieldValue(fd, v)
		return true
	})
	return types.NewObject(fields)
}

func decodeFieldValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) types.UniversalValue {
	if fd.IsList() {
		list := v.List()
		elems := make([]types.UniversalValue, 0, list.Len())
		for i := 0; i < list.Len(); i++ {
			elems = append(elems, decodeScalar(fd, list.Get(i)))
		}
		elemType := scalarUniversalType(fd)
		arr, err := types.NewArray(elems, elemType, nil)
		if err != nil {
			return types.Null(types.Array(elemType))
		}
		return arr
	}
	return decodeScalar(fd, v)
}

func decodeScalar(fd protoreflect.FieldDescriptor, v protoreflect.Value) types.UniversalValue {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return types.NewBool(v.Bool())
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		r, _ := types.NewInt(int64(v.Int()), 32)
		return r
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		r, _ := types.NewInt(v.Int(), 64)
		return r
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		r, _ := types.NewInt(int64(v.Uint()), 32)
		return r
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		r, _ := types.NewInt(int64(v.Uint()), 64)
		return r
	case protoreflect.FloatKind:
		return types.NewFloat32(float32(v.Float()))
	case protoreflect.DoubleKind:
		return types.NewFloat64(v.Float())
	case protoreflect.StringKind:
		return types.NewText(v.String())
	case protoreflect.BytesKind:
		return types.NewBytes(append([]byte(nil), v.Bytes()...))
	case protoreflect.EnumKind:
		name := string(fd.Enum().Values().ByNumber(v.Enum()).Name())
		values := enumValueNames(fd.Enum())
		ev, err := types.NewEnum(name, values)
		if err != nil {
			return types.NewText(name)
		}
		return ev
	case protoreflect.MessageKind:
		msg, ok := v.Message().Interface().(*dynamicpb.Message)
		if !ok {
			b, _ := json.Marshal(v.Message().Interface())
			return types.NewJson(b)
		}
		return decodeDynamicMessage(msg)
	default:
		return types.NewText(v.String())
	}
}

func enumValueNames(ed protoreflect.EnumDescriptor) []string {
	vs := ed.Values()
	out := make([]string, vs.Len())
	for i := 0; i < vs.Len(); i++ {
		out[i] = string(vs.Get(i).Name())
	}
	return out
}

func scalarUniversalType(fd protoreflect.FieldDescriptor) types.UniversalType {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return types.Bool
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return types.Int32
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return types.Int64
	case protoreflect.FloatKind:
		return types.Float32
	case protoreflect.DoubleKind:
		return types.Float64
	case protoreflect.StringKind:
		return types.Text
	case protoreflect.BytesKind:
		return types.Bytes
	default:
		return types.Text
	}
}
