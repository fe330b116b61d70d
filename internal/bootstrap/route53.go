package bootstrap

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// Route53Config names the hosted zone and TXT record used to publish and
// discover ring membership.
type Route53Config struct {
	HostedZoneID string `yaml:"hosted_zone_id"`
	RecordName   string `yaml:"record_name"`
	TTL          int64  `yaml:"ttl"`
}

// Route53 discovers and advertises peers through a TXT record in a Route
// 53 hosted zone: each value in the record's resource-record set is one
// peer's "ip:port".
type Route53 struct {
	client *route53.Client
	cfg    Route53Config
}

// NewRoute53 builds a Route53 source using the default AWS credential
// chain (environment, shared config, or instance role).
func NewRoute53(ctx context.Context, cfg Route53Config) (*Route53, error) {
	if cfg.HostedZoneID == "" || cfg.RecordName == "" {
		return nil, fmt.Errorf("bootstrap: route53 requires HostedZoneID and RecordName")
	}
	if cfg.TTL == 0 {
		cfg.TTL = 30
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: loading AWS config: %w", err)
	}
	return &Route53{client: route53.NewFromConfig(awsCfg), cfg: cfg}, nil
}

func (r *Route53) Discover(ctx context.Context) ([]string, error) {
	values, err := r.currentValues(ctx)
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (r *Route53) Register(ctx context.Context, self string) error {
	values, err := r.currentValues(ctx)
	if err != nil {
		return err
	}
	for _, v := range values {
		if v == self {
			return nil
		}
	}
	return r.upsert(ctx, append(values, self))
}

func (r *Route53) Deregister(ctx context.Context, self string) error {
	values, err := r.currentValues(ctx)
	if err != nil {
		return err
	}
	kept := values[:0]
	for _, v := range values {
		if v != self {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return r.delete(ctx)
	}
	return r.upsert(ctx, kept)
}

func (r *Route53) currentValues(ctx context.Context) ([]string, error) {
	out, err := r.client.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    &r.cfg.HostedZoneID,
		StartRecordName: &r.cfg.RecordName,
		StartRecordType: types.RRTypeTxt,
		MaxItems:        awsInt32Ptr(1),
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: listing record sets: %w", err)
	}
	for _, rs := range out.ResourceRecordSets {
		if rs.Name == nil || *rs.Name != dnsName(r.cfg.RecordName) || rs.Type != types.RRTypeTxt {
			continue
		}
		values := make([]string, 0, len(rs.ResourceRecords))
		for _, rr := range rs.ResourceRecords {
			if rr.Value == nil {
				continue
			}
			values = append(values, strings.Trim(*rr.Value, `"`))
		}
		return values, nil
	}
	return nil, nil
}

func (r *Route53) upsert(ctx context.Context, values []string) error {
	records := make([]types.ResourceRecord, 0, len(values))
	for _, v := range values {
		quoted := fmt.Sprintf(`"%s"`, v)
		records = append(records, types.ResourceRecord{Value: &quoted})
	}
	return r.change(ctx, types.ChangeActionUpsert, records)
}

func (r *Route53) delete(ctx context.Context) error {
	return r.change(ctx, types.ChangeActionDelete, nil)
}

func (r *Route53) change(ctx context.Context, action types.ChangeAction, records []types.ResourceRecord) error {
	name := dnsName(r.cfg.RecordName)
	ttl := r.cfg.TTL
	_, err := r.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: &r.cfg.HostedZoneID,
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{
				{
					Action: action,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name:            &name,
						Type:            types.RRTypeTxt,
						TTL:             &ttl,
						ResourceRecords: records,
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("bootstrap: changing record set: %w", err)
	}
	return nil
}

func dnsName(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}

func awsInt32Ptr(v int32) *int32 { return &v }
