package command

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	svcErr "github.com/takumayoshiokadotcom/kyonomi/internal/errors"
)

const (
	ServiceName      = "kyonomi.v1.CommandService"
	InvokeFullMethod = "/kyonomi.v1.CommandService/Invoke"

	authorizationKey = "authorization"
	bearerPrefix     = "Bearer "
)

// CommandServiceServer is the server API for kyonomi.v1.CommandService.
//
// Invoke takes {"command": name, "args": {...}} and answers {"result": ...}.
type CommandServiceServer interface {
	Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func invokeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CommandServiceServer).Invoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: InvokeFullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CommandServiceServer).Invoke(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// CommandServiceDesc describes kyonomi.v1.CommandService for grpc.Server.RegisterService.
var CommandServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CommandServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Invoke",
			Handler:    invokeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kyonomi/v1/command.proto",
}

// Server exposes a Registry as CommandService.
type Server struct {
	registry *Registry
	logger   *slog.Logger
}

func NewServer(registry *Registry, logger *slog.Logger) *Server {
	return &Server{registry: registry, logger: logger}
}

// Invoke decodes the command envelope, dispatches it and wraps the result.
// Errors leave as gRPC statuses.
func (s *Server) Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := req.GetFields()["command"].GetStringValue()
	if name == "" {
		return nil, svcErr.Map(svcErr.InvalidArg("command is required"))
	}

	var args json.RawMessage
	if v, ok := req.GetFields()["args"]; ok {
		raw, err := protojson.Marshal(v)
		if err != nil {
			return nil, svcErr.Map(svcErr.InvalidArg("args must be a JSON value"))
		}
		args = raw
	}

	out, err := s.registry.Dispatch(ctx, name, tokenFromContext(ctx), args)
	if err != nil {
		s.logger.Debug("Invoke failed", "command", name, "err", err)
		return nil, svcErr.Map(err)
	}

	result, err := toValue(out)
	if err != nil {
		s.logger.Error("failed to encode result", "command", name, "err", err)
		return nil, svcErr.Map(svcErr.ErrInternal(err))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"result": result}}, nil
}

// Registrar ties the command service into the gRPC server.
type Registrar struct {
	server *Server
}

func NewRegistrar(server *Server) *Registrar {
	return &Registrar{server: server}
}

func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&CommandServiceDesc, r.server)
}

func tokenFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get(authorizationKey) {
		if len(v) > len(bearerPrefix) && strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
			return strings.TrimSpace(v[len(bearerPrefix):])
		}
	}
	return ""
}

// toValue converts any JSON-encodable value into a structpb.Value.
func toValue(v any) (*structpb.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Value{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}
