package protobuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

func strPtr(s string) *string { return &s }
func i32Ptr(i int32) *int32   { return &i }

func labelOptional() *descriptorpb.FieldDescriptorProto_Label {
	l := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	return &l
}

func labelRepeated() *descriptorpb.FieldDescriptorProto_Label {
	l := descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	return &l
}

func typePtr(t descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto_Type {
	return &t
}

// buildTestDescriptorSet assembles a small FileDescriptorSet for a
// package "testpb" with a nested message and an enum, without going
// through a .proto compiler.
func buildTestDescriptorSet() *descriptorpb.FileDescriptorSet {
	nested := &descriptorpb.DescriptorProto{
		Name: strPtr("Inner"),
		Field: []*descriptorpb.FieldDescriptorProto{
			{
				Name:     strPtr("label"),
				Number:   i32Ptr(1),
				Label:    labelOptional(),
				Type:     typePtr(descriptorpb.FieldDescriptorProto_TYPE_STRING),
				JsonName: strPtr("label"),
			},
		},
	}

	enum := &descriptorpb.EnumDescriptorProto{
		Name: strPtr("Status"),
		Value: []*descriptorpb.EnumValueDescriptorProto{
			{Name: strPtr("UNKNOWN"), Number: i32Ptr(0)},
			{Name: strPtr("ACTIVE"), Number: i32Ptr(1)},
		},
	}

	msg := &descriptorpb.DescriptorProto{
		Name: strPtr("Event"),
		Field: []*descriptorpb.FieldDescriptorProto{
			{
				Name:     strPtr("ok"),
				Number:   i32Ptr(1),
				Label:    labelOptional(),
				Type:     typePtr(descriptorpb.FieldDescriptorProto_TYPE_BOOL),
				JsonName: strPtr("ok"),
			},
			{
				Name:     strPtr("tags"),
				Number:   i32Ptr(2),
				Label:    labelRepeated(),
				Type:     typePtr(descriptorpb.FieldDescriptorProto_TYPE_INT32),
				JsonName: strPtr("tags"),
			},
			{
				Name:     strPtr("status"),
				Number:   i32Ptr(3),
				Label:    labelOptional(),
				Type:     typePtr(descriptorpb.FieldDescriptorProto_TYPE_ENUM),
				TypeName: strPtr(".testpb.Status"),
				JsonName: strPtr("status"),
			},
			{
				Name:     strPtr("inner"),
				Number:   i32Ptr(4),
				Label:    labelOptional(),
				Type:     typePtr(descriptorpb.FieldDescriptorProto_TYPE_MESSAGE),
				TypeName: strPtr(".testpb.Event.Inner"),
				JsonName: strPtr("inner"),
			},
		},
		NestedType: []*descriptorpb.DescriptorProto{nested},
	}

	groupMsg := &descriptorpb.DescriptorProto{
		Name: strPtr("WithGroup"),
		Field: []*descriptorpb.FieldDescriptorProto{
			{
				Name:     strPtr("grp"),
				Number:   i32Ptr(1),
				Label:    labelOptional(),
				Type:     typePtr(descriptorpb.FieldDescriptorProto_TYPE_GROUP),
				TypeName: strPtr(".testpb.WithGroup"),
				JsonName: strPtr("grp"),
			},
		},
	}

	fd := &descriptorpb.FileDescriptorProto{
		Name:       strPtr("test.proto"),
		Package:    strPtr("testpb"),
		Syntax:     strPtr("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{msg, groupMsg},
		EnumType:    []*descriptorpb.EnumDescriptorProto{enum},
	}

	return &descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{fd}}
}

func TestLoadFileDescriptorSetRejectsGroups(t *testing.T) {
	fdset := buildTestDescriptorSet()
	data, err := proto.Marshal(fdset)
	require.NoError(t, err)

	_, err = LoadFileDescriptorSet(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TYPE_GROUP")
}

func TestLoadFileDescriptorSetAndDecodeMessage(t *testing.T) {
	fdset := buildTestDescriptorSet()
	// Drop the group-bearing message so the rest of the schema loads.
	fdset.File[0].MessageType = fdset.File[0].MessageType[:1]
	data, err := proto.Marshal(fdset)
	require.NoError(t, err)

	schema, err := LoadFileDescriptorSet(data)
	require.NoError(t, err)

	md, err := schema.Message("testpb.Event")
	require.NoError(t, err)

	files, err := protodesc.NewFiles(fdset)
	require.NoError(t, err)
	fd, err := files.FindFileByPath("test.proto")
	require.NoError(t, err)
	eventMd := fd.Messages().ByName("Event")
	require.NotNil(t, eventMd)

	msg := dynamicpb.NewMessage(eventMd)
	msg.Set(eventMd.Fields().ByName("ok"), protoreflect.ValueOfBool(true))

	tagsField := eventMd.Fields().ByName("tags")
	list := msg.NewField(tagsField).List()
	list.Append(protoreflect.ValueOfInt32(1))
	list.Append(protoreflect.ValueOfInt32(2))
	msg.Set(tagsField, protoreflect.ValueOfList(list))

	statusField := eventMd.Fields().ByName("status")
	activeNum := statusField.Enum().Values().ByName("ACTIVE").Number()
	msg.Set(statusField, protoreflect.ValueOfEnum(activeNum))

	innerField := eventMd.Fields().ByName("inner")
	innerMd := innerField.Message()
	innerMsg := dynamicpb.NewMessage(innerMd)
	innerMsg.Set(innerMd.Fields().ByName("label"), protoreflect.ValueOfString("hi"))
	msg.Set(innerField, protoreflect.ValueOfMessage(innerMsg))

	raw, err := proto.Marshal(msg)
	require.NoError(t, err)

	v, err := DecodeMessage(raw, md)
	require.NoError(t, err)
	require.NotNil(t, v.Object)

	assert.True(t, v.Object["ok"].Bool)
	require.Len(t, v.Object["tags"].Elements, 2)
	assert.Equal(t, "ACTIVE", v.Object["status"].EnumValue)
	assert.Equal(t, "hi", v.Object["inner"].Object["label"].Str)
}
