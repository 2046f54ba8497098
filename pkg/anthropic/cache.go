package anthropic

// BuildCachedSystemBlocks wraps the extraction rules in a single system block
// with a 5-minute cache breakpoint. The rules and vocabulary are identical
// across windows of a request, so consecutive fallback calls hit the cache.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: "5m"},
		},
	}
}
