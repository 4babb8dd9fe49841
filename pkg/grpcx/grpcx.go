// Package grpcx 无需代码生成的 gRPC 服务：请求与响应统一使用 google.protobuf.Struct
package grpcx

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"

	"github.com/wyfcoding/tokenexchange/pkg/apperr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxExactFloat float64 能精确表示的最大整数
const maxExactFloat = 1 << 53

// Func 一个一元方法的实现，返回值按 JSON 结构转换为 Struct
type Func func(ctx context.Context, req *Request) (any, error)

// Method 方法名与实现
type Method struct {
	Name string
	Call Func
}

// NewServiceDesc 构造服务描述。实现以闭包形式持有，注册时的 srv 参数不参与调用
func NewServiceDesc(serviceName string, methods ...Method) *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*any)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    serviceName,
	}
	for _, m := range methods {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: m.Name,
			Handler:    unaryHandler("/"+serviceName+"/"+m.Name, m.Call),
		})
	}
	return desc
}

// Register 注册服务
func Register(r grpc.ServiceRegistrar, desc *grpc.ServiceDesc) {
	r.RegisterService(desc, struct{}{})
}

func unaryHandler(fullMethod string, fn Func) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			out, err := fn(ctx, &Request{fields: req.(*structpb.Struct).GetFields()})
			if err != nil {
				return nil, apperr.GRPCStatus(err)
			}
			return ToStruct(out)
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}, handler)
	}
}

// Request 请求字段读取
type Request struct {
	fields map[string]*structpb.Value
}

// NewRequest 包装 Struct
func NewRequest(s *structpb.Struct) *Request {
	return &Request{fields: s.GetFields()}
}

// String 读取字符串字段，缺省为空串
func (r *Request) String(name string) string {
	return r.fields[name].GetStringValue()
}

// Uint 读取非负整数字段，兼容数字与十进制字符串两种编码
func (r *Request) Uint(name string) (uint64, error) {
	v, ok := r.fields[name]
	if !ok {
		return 0, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f < 0 || f != math.Trunc(f) || f > maxExactFloat {
			return 0, status.Errorf(codes.InvalidArgument, "field %s is not an exact unsigned integer", name)
		}
		return uint64(f), nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseUint(k.StringValue, 10, 64)
		if err != nil {
			return 0, status.Errorf(codes.InvalidArgument, "field %s: %v", name, err)
		}
		return n, nil
	case *structpb.Value_NullValue:
		return 0, nil
	default:
		return 0, status.Errorf(codes.InvalidArgument, "field %s must be a number", name)
	}
}

// Int 读取整数字段，越界或类型错误时返回 def
func (r *Request) Int(name string, def int) int {
	n, err := r.Uint(name)
	if err != nil || n > math.MaxInt32 {
		return def
	}
	if _, ok := r.fields[name]; !ok {
		return def
	}
	return int(n)
}

// ToStruct 任意 JSON 可编码的值转换为 Struct。超出 2^53 的整数以字符串表示
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, status.Errorf(codes.Internal, "decode response: %v", err)
	}

	obj, ok := normalize(raw).(map[string]any)
	if !ok {
		obj = map[string]any{"result": normalize(raw)}
	}
	s, err := structpb.NewStruct(obj)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return s, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			if n > maxExactFloat || n < -maxExactFloat {
				return t.String()
			}
			return float64(n)
		}
		if _, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return t.String()
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

// MustField 读取必填字符串字段
func (r *Request) MustField(name string) (string, error) {
	s := r.String(name)
	if s == "" {
		return "", status.Errorf(codes.InvalidArgument, "field %s is required", name)
	}
	return s, nil
}

// Has 字段是否存在且非 null
func (r *Request) Has(name string) bool {
	v, ok := r.fields[name]
	if !ok {
		return false
	}
	_, isNull := v.GetKind().(*structpb.Value_NullValue)
	return !isNull
}
