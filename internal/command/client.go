package command

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls CommandService. Token is sent as a bearer credential when set.
type Client struct {
	cc    grpc.ClientConnInterface
	Token string
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Invoke runs command with args and decodes the result into out (when non-nil).
func (c *Client) Invoke(ctx context.Context, command string, args any, out any) error {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"command": structpb.NewStringValue(command),
	}}
	if args != nil {
		v, err := toValue(args)
		if err != nil {
			return fmt.Errorf("encode args: %w", err)
		}
		req.Fields["args"] = v
	}

	if c.Token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, authorizationKey, bearerPrefix+c.Token)
	}

	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, InvokeFullMethod, req, resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	raw, err := protojson.Marshal(resp.GetFields()["result"])
	if err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return json.Unmarshal(raw, out)
}
