package sink

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"github.com/jhump/protoreflect/grpcreflect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
	"google.golang.org/protobuf/types/descriptorpb"
)

// GRPCExporter ships batches to an ingest service discovered via gRPC
// server reflection. The wire contract is minimal on purpose: any unary
// method whose request message carries a bytes field receives the
// CBOR-encoded batch in that field, so no generated client code is needed
// on either side of the version skew.
type GRPCExporter struct {
	conn      *grpc.ClientConn
	refClient *grpcreflect.Client
	target    string
	closed    atomic.Bool
	mu        sync.Mutex

	method       *desc.MethodDescriptor
	payloadField *desc.FieldDescriptor
}

// DialExporter connects to target and resolves the ingest method, named
// as "package.Service.Method".
func DialExporter(ctx context.Context, target, method string) (*GRPCExporter, error) {
	conn, err := grpc.Dial(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("sink: connecting to %s: %w", target, err)
	}

	refClient := grpcreflect.NewClientV1Alpha(ctx, rpb.NewServerReflectionClient(conn))

	e := &GRPCExporter{
		conn:      conn,
		refClient: refClient,
		target:    target,
	}
	if err := e.resolveMethod(method); err != nil {
		refClient.Reset()
		conn.Close()
		return nil, err
	}
	return e, nil
}

// ListServices returns the services the server exposes, minus the
// reflection service itself.
func (e *GRPCExporter) ListServices() ([]string, error) {
	services, err := e.refClient.ListServices()
	if err != nil {
		return nil, fmt.Errorf("sink: listing services on %s: %w", e.target, err)
	}
	out := make([]string, 0, len(services))
	for _, svc := range services {
		if strings.HasPrefix(svc, "grpc.reflection") {
			continue
		}
		out = append(out, svc)
	}
	return out, nil
}

// Send delivers one batch as a dynamic unary call. Satisfies Transport.
func (e *GRPCExporter) Send(ctx context.Context, b *Batch) error {
	if e.closed.Load() {
		return fmt.Errorf("sink: exporter is closed")
	}

	data, err := MarshalBatch(b)
	if err != nil {
		return err
	}

	reqMsg := dynamic.NewMessage(e.method.GetInputType())
	if err := reqMsg.TrySetField(e.payloadField, data); err != nil {
		return fmt.Errorf("sink: setting payload field: %w", err)
	}
	respMsg := dynamic.NewMessage(e.method.GetOutputType())

	fullName := fmt.Sprintf("/%s/%s",
		e.method.GetService().GetFullyQualifiedName(), e.method.GetName())
	if err := e.conn.Invoke(ctx, fullName, reqMsg, respMsg); err != nil {
		return fmt.Errorf("sink: ingest call failed: %w", err)
	}
	return nil
}

func (e *GRPCExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed.Swap(true) {
		return nil
	}
	e.refClient.Reset()
	return e.conn.Close()
}

// resolveMethod looks up "package.Service.Method" through reflection and
// locates the bytes field the payload rides in.
func (e *GRPCExporter) resolveMethod(name string) error {
	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return fmt.Errorf("sink: method %q is not of the form package.Service.Method", name)
	}
	svcName, methodName := name[:dot], name[dot+1:]

	svcDesc, err := e.refClient.ResolveService(svcName)
	if err != nil {
		return fmt.Errorf("sink: resolving service %s: %w", svcName, err)
	}
	methodDesc := svcDesc.FindMethodByName(methodName)
	if methodDesc == nil {
		return fmt.Errorf("sink: service %s has no method %s", svcName, methodName)
	}
	if methodDesc.IsClientStreaming() || methodDesc.IsServerStreaming() {
		return fmt.Errorf("sink: method %s is streaming, ingest must be unary", name)
	}

	var payload *desc.FieldDescriptor
	for _, f := range methodDesc.GetInputType().GetFields() {
		if f.GetType() == descriptorpb.FieldDescriptorProto_TYPE_BYTES && !f.IsRepeated() {
			payload = f
			break
		}
	}
	if payload == nil {
		return fmt.Errorf("sink: request type %s has no bytes field to carry the batch",
			methodDesc.GetInputType().GetFullyQualifiedName())
	}

	e.method = methodDesc
	e.payloadField = payload
	return nil
}
