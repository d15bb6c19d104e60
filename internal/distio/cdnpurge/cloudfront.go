package cdnpurge

import (
	"context"
	"fmt"
)

// CloudFront is a scaffold for a second CDN provider. Purge invalidations
// there are batch-job based (CreateInvalidation + poll), a fundamentally
// different shape than Cloudflare's synchronous purge_cache call, so it is
// not implemented yet — only wired as a second Client variant so the
// orchestrator's dependency on the Client interface is not Cloudflare-only.
type CloudFront struct {
	DistributionID string
}

// NewCloudFront builds an unimplemented CloudFront purge client.
func NewCloudFront(distributionID string) *CloudFront {
	return &CloudFront{DistributionID: distributionID}
}

func (c *CloudFront) Purge(_ context.Context, _ []string) error {
	return fmt.Errorf("cdnpurge: CloudFront provider not implemented (distribution %q)", c.DistributionID)
}
