// Package paymentv1 is the payment.v1.Payment gRPC contract. Messages travel
// on the wire as google.protobuf.Struct and are mapped to typed Go values at
// both ends.
package paymentv1

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName                         = "payment.v1.Payment"
	Payment_InitiateLicensePayment_Name = "/payment.v1.Payment/InitiateLicensePayment"
)

type InitiateLicensePaymentRequest struct {
	Slug   string  `json:"slug"`
	Amount float64 `json:"amount"`
}

type InitiateLicensePaymentResponse struct {
	Reference   string            `json:"reference"`
	CheckoutUrl string            `json:"checkout_url"`
	Status      string            `json:"status"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ToProto encodes the request as its wire message.
func (r *InitiateLicensePaymentRequest) ToProto() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"slug":   structpb.NewStringValue(r.Slug),
		"amount": structpb.NewNumberValue(r.Amount),
	}}
}

// InitiateLicensePaymentRequestFromProto decodes a request wire message.
// Missing fields keep their zero value.
func InitiateLicensePaymentRequestFromProto(s *structpb.Struct) (*InitiateLicensePaymentRequest, error) {
	f := s.GetFields()
	slug, err := stringField(f, "slug")
	if err != nil {
		return nil, err
	}
	amount, err := numberField(f, "amount")
	if err != nil {
		return nil, err
	}
	return &InitiateLicensePaymentRequest{Slug: slug, Amount: amount}, nil
}

// ToProto encodes the response as its wire message.
func (r *InitiateLicensePaymentResponse) ToProto() *structpb.Struct {
	fields := map[string]*structpb.Value{
		"reference":    structpb.NewStringValue(r.Reference),
		"checkout_url": structpb.NewStringValue(r.CheckoutUrl),
		"status":       structpb.NewStringValue(r.Status),
	}
	if len(r.Metadata) > 0 {
		md := make(map[string]*structpb.Value, len(r.Metadata))
		for k, v := range r.Metadata {
			md[k] = structpb.NewStringValue(v)
		}
		fields["metadata"] = structpb.NewStructValue(&structpb.Struct{Fields: md})
	}
	return &structpb.Struct{Fields: fields}
}

// InitiateLicensePaymentResponseFromProto decodes a response wire message.
func InitiateLicensePaymentResponseFromProto(s *structpb.Struct) (*InitiateLicensePaymentResponse, error) {
	f := s.GetFields()
	out := &InitiateLicensePaymentResponse{}
	var err error
	if out.Reference, err = stringField(f, "reference"); err != nil {
		return nil, err
	}
	if out.CheckoutUrl, err = stringField(f, "checkout_url"); err != nil {
		return nil, err
	}
	if out.Status, err = stringField(f, "status"); err != nil {
		return nil, err
	}
	if v, ok := f["metadata"]; ok {
		md := v.GetStructValue()
		if md == nil {
			return nil, fmt.Errorf("paymentv1: field %q is not a struct", "metadata")
		}
		out.Metadata = make(map[string]string, len(md.GetFields()))
		for k := range md.GetFields() {
			if out.Metadata[k], err = stringField(md.GetFields(), k); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func stringField(f map[string]*structpb.Value, key string) (string, error) {
	v, ok := f[key]
	if !ok {
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("paymentv1: field %q is not a string", key)
	}
	return s.StringValue, nil
}

func numberField(f map[string]*structpb.Value, key string) (float64, error) {
	v, ok := f[key]
	if !ok {
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("paymentv1: field %q is not a number", key)
	}
	return n.NumberValue, nil
}

// PaymentClient is the client API for the Payment service.
type PaymentClient interface {
	InitiateLicensePayment(ctx context.Context, in *InitiateLicensePaymentRequest, opts ...grpc.CallOption) (*InitiateLicensePaymentResponse, error)
}

type paymentClient struct {
	cc grpc.ClientConnInterface
}

func NewPaymentClient(cc grpc.ClientConnInterface) PaymentClient {
	return &paymentClient{cc: cc}
}

func (c *paymentClient) InitiateLicensePayment(ctx context.Context, in *InitiateLicensePaymentRequest, opts ...grpc.CallOption) (*InitiateLicensePaymentResponse, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, Payment_InitiateLicensePayment_Name, in.ToProto(), out, opts...); err != nil {
		return nil, err
	}
	resp, err := InitiateLicensePaymentResponseFromProto(out)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// PaymentServer is the server API for the Payment service. Implementations
// must embed UnimplementedPaymentServer.
type PaymentServer interface {
	InitiateLicensePayment(context.Context, *InitiateLicensePaymentRequest) (*InitiateLicensePaymentResponse, error)
	mustEmbedUnimplementedPaymentServer()
}

type UnimplementedPaymentServer struct{}

func (UnimplementedPaymentServer) InitiateLicensePayment(context.Context, *InitiateLicensePaymentRequest) (*InitiateLicensePaymentResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method InitiateLicensePayment not implemented")
}
func (UnimplementedPaymentServer) mustEmbedUnimplementedPaymentServer() {}

func RegisterPaymentServer(s grpc.ServiceRegistrar, srv PaymentServer) {
	s.RegisterService(&Payment_ServiceDesc, srv)
}

// Interceptors see the wire messages, as with generated handlers.
func _Payment_InitiateLicensePayment_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req any) (any, error) {
		typed, err := InitiateLicensePaymentRequestFromProto(req.(*structpb.Struct))
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		resp, err := srv.(PaymentServer).InitiateLicensePayment(ctx, typed)
		if err != nil {
			return nil, err
		}
		return resp.ToProto(), nil
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Payment_InitiateLicensePayment_Name,
	}
	return interceptor(ctx, in, info, handler)
}

var Payment_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PaymentServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "InitiateLicensePayment",
			Handler:    _Payment_InitiateLicensePayment_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "payment/v1/payment.proto",
}
