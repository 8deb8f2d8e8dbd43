//go:build protogen

package grpcserver

import (
	"context"

	"github.com/md-rashed-zaman/orderflow/libs/product"
	registryv1 "github.com/md-rashed-zaman/orderflow/protos/gen/registry/v1"
	"github.com/md-rashed-zaman/orderflow/services/registry-read-service/internal/handlers"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type server struct {
	registryv1.UnimplementedRegistryServiceServer
	views handlers.ViewFinder
}

func Register(grpcServer *grpc.Server, views handlers.ViewFinder) {
	registryv1.RegisterRegistryServiceServer(grpcServer, &server{views: views})
}

func (s *server) GetProduct(ctx context.Context, req *registryv1.GetProductRequest) (*registryv1.ProductView, error) {
	id, err := product.ParseProductID(req.GetProductId())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid product id")
	}
	view, err := s.views.FindByID(ctx, id)
	if err != nil {
		return nil, status.Error(codes.Internal, "view lookup failed")
	}
	if view == nil {
		return nil, status.Error(codes.NotFound, "product not found")
	}
	return toProto(view), nil
}

func (s *server) SearchProducts(ctx context.Context, req *registryv1.SearchProductsRequest) (*registryv1.SearchProductsResponse, error) {
	limit := int(req.GetLimit())
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := int(req.GetOffset())
	if offset < 0 {
		offset = 0
	}
	views, total, err := s.views.Search(ctx, req.GetQuery(), limit, offset)
	if err != nil {
		return nil, status.Error(codes.Internal, "view search failed")
	}
	resp := &registryv1.SearchProductsResponse{Total: int64(total)}
	for _, v := range views {
		resp.Products = append(resp.Products, toProto(v))
	}
	return resp, nil
}

func toProto(v *product.View) *registryv1.ProductView {
	return &registryv1.ProductView{
		ProductId:   v.ID.String(),
		Version:     v.Version,
		SkuId:       v.SkuID.String(),
		Name:        v.Name,
		Description: v.Description,
		Status:      string(v.Status),
		CreatedAt:   timestamppb.New(v.CreatedAt),
		UpdatedAt:   timestamppb.New(v.UpdatedAt),
	}
}
