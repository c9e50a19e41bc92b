// Package vector holds the similarity indexes over recipe embeddings.
package vector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// payloadID is the payload field carrying the caller's id. Qdrant point ids
// must be integers or UUIDs, so recipe slugs are hashed into a UUID and the
// slug itself rides along in the payload.
const payloadID = "id"

// QdrantOptions configures a Qdrant connection.
type QdrantOptions struct {
	Addr       string // host:port of the gRPC endpoint
	APIKey     string
	Collection string
	Dimension  int
}

// Qdrant is a VectorStore backed by a Qdrant collection over gRPC.
type Qdrant struct {
	conn        *grpc.ClientConn
	points      qdrantclient.PointsClient
	collections qdrantclient.CollectionsClient
	opts        QdrantOptions
}

// NewQdrant dials Qdrant. The collection is created lazily by EnsureCollection.
func NewQdrant(opts QdrantOptions) (*Qdrant, error) {
	if opts.Collection == "" {
		opts.Collection = "recipes"
	}
	conn, err := grpc.NewClient(opts.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s: %w", opts.Addr, err)
	}
	return &Qdrant{
		conn:        conn,
		points:      qdrantclient.NewPointsClient(conn),
		collections: qdrantclient.NewCollectionsClient(conn),
		opts:        opts,
	}, nil
}

// EnsureCollection creates the collection with cosine distance if it does
// not exist yet.
func (q *Qdrant) EnsureCollection(ctx context.Context) error {
	ctx = q.withAuth(ctx)
	list, err := q.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == q.opts.Collection {
			return nil
		}
	}
	if q.opts.Dimension <= 0 {
		return fmt.Errorf("collection %s missing and vector dimension not configured", q.opts.Collection)
	}

	slog.Info("creating qdrant collection", "collection", q.opts.Collection, "dimension", q.opts.Dimension)
	_, err = q.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: q.opts.Collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(q.opts.Dimension),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (q *Qdrant) Upsert(ctx context.Context, id string, vector []float32, meta map[string]string) error {
	payload := make(map[string]*qdrantclient.Value, len(meta)+1)
	for k, v := range meta {
		payload[k] = stringValue(v)
	}
	payload[payloadID] = stringValue(id)

	_, err := q.points.Upsert(q.withAuth(ctx), &qdrantclient.UpsertPoints{
		CollectionName: q.opts.Collection,
		Points: []*qdrantclient.PointStruct{{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: PointID(id)},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: vector},
				},
			},
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point %s: %w", id, err)
	}
	return nil
}

func (q *Qdrant) SearchByVector(ctx context.Context, vector []float32, k int) ([]schema.VectorMatch, error) {
	if k <= 0 {
		return []schema.VectorMatch{}, nil
	}
	resp, err := q.points.Search(q.withAuth(ctx), &qdrantclient.SearchPoints{
		CollectionName: q.opts.Collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search in qdrant: %w", err)
	}

	out := make([]schema.VectorMatch, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		meta := make(map[string]string, len(point.GetPayload()))
		for k, v := range point.GetPayload() {
			meta[k] = v.GetStringValue()
		}
		id := meta[payloadID]
		delete(meta, payloadID)
		out = append(out, schema.VectorMatch{ID: id, Score: point.GetScore(), Metadata: meta})
	}
	return out, nil
}

func (q *Qdrant) Close() error { return q.conn.Close() }

func (q *Qdrant) withAuth(ctx context.Context) context.Context {
	if q.opts.APIKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", q.opts.APIKey)
}

// PointID maps an arbitrary id onto the deterministic UUID Qdrant stores it
// under.
func PointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

func stringValue(s string) *qdrantclient.Value {
	return &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: s}}
}
