package sitemap

// Entry is one candidate resource discovered in the sitemap feed.
type Entry struct {
	// Identifier is the normalized "/<productType>/<slug>" path suffix that
	// uniquely names the resource within a product type. The feed does not
	// guarantee uniqueness; downstream treats it as a natural key with
	// last-write-wins semantics.
	Identifier string

	// LastModified is the raw lastmod text from the feed, nil when omitted.
	LastModified *string
}
