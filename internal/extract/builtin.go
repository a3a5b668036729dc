package extract

// The builtin strategy catalog: one LLM strategy per content domain, each
// with an output schema and instruction. STRATEGIES_DIR definitions may
// override any of them by name.

type builtinDef struct {
	Name        string
	Category    string
	Description string
	Version     string
	Instruction string
	Schema      map[string]any
}

// objSchema, prop and arrayOf keep the catalog literals readable.
func objSchema(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func arrayOf(typ, desc string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": desc,
		"items":       map[string]any{"type": typ},
	}
}

var builtinCatalog = []builtinDef{
	{
		Name:        "CryptoLLM",
		Category:    CategoryCrypto,
		Description: "Cryptocurrency market and news pages: headlines, assets, prices.",
		Version:     "1.0.0",
		Instruction: "Extract cryptocurrency information from the page: the main headline, a short summary, the digital assets mentioned, and any stated prices or market figures. Express monetary values in USD as plain numbers without symbols.",
		Schema: objSchema([]string{"headline"}, map[string]any{
			"headline":           prop("string", "Main headline or title of the page"),
			"summary":            prop("string", "Short summary of the content"),
			"assets":             arrayOf("string", "Cryptocurrency names or tickers mentioned"),
			"price_usd":          prop("number", "Primary asset price in USD"),
			"market_cap_usd":     prop("number", "Market capitalization in USD"),
			"change_24h_percent": prop("number", "24-hour price change in percent"),
			"published_at":       prop("string", "Publication timestamp if stated"),
		}),
	},
	{
		Name:        "NewsLLM",
		Category:    CategoryNews,
		Description: "News articles: headline, author, body, publication data.",
		Version:     "1.0.0",
		Instruction: "Extract the news article from the page: headline, author, publication time, a concise summary, the article body text, and topical tags.",
		Schema: objSchema([]string{"headline"}, map[string]any{
			"headline":     prop("string", "Article headline"),
			"author":       prop("string", "Byline author"),
			"published_at": prop("string", "Publication timestamp"),
			"summary":      prop("string", "Concise summary of the article"),
			"body_text":    prop("string", "Main article text"),
			"tags":         arrayOf("string", "Topical tags or sections"),
			"source":       prop("string", "Publishing outlet"),
		}),
	},
	{
		Name:        "SocialLLM",
		Category:    CategorySocial,
		Description: "Social media posts: author, text, engagement counts.",
		Version:     "1.0.0",
		Instruction: "Extract the social media post from the page: the author handle, the post text, when it was posted, and engagement counts. Counts are plain integers.",
		Schema: objSchema([]string{"author", "text"}, map[string]any{
			"author":    prop("string", "Author handle or display name"),
			"text":      prop("string", "Post text"),
			"posted_at": prop("string", "Post timestamp"),
			"likes":     prop("integer", "Like or upvote count"),
			"shares":    prop("integer", "Share, repost or retweet count"),
			"replies":   prop("integer", "Reply or comment count"),
			"hashtags":  arrayOf("string", "Hashtags in the post"),
			"platform":  prop("string", "Social platform name"),
		}),
	},
	{
		Name:        "ProductLLM",
		Category:    CategoryProduct,
		Description: "E-commerce product pages: name, price, availability, reviews.",
		Version:     "1.0.0",
		Instruction: "Extract the product listing from the page: product name, price as a plain number with its currency code, availability, rating, and review count.",
		Schema: objSchema([]string{"name", "price"}, map[string]any{
			"name":         prop("string", "Product name"),
			"price":        prop("number", "Price as a plain number"),
			"currency":     prop("string", "ISO currency code"),
			"availability": prop("string", "Stock or availability state"),
			"rating":       prop("number", "Average review rating"),
			"review_count": prop("integer", "Number of reviews"),
			"description":  prop("string", "Product description"),
			"brand":        prop("string", "Brand or manufacturer"),
			"sku":          prop("string", "SKU or model identifier"),
		}),
	},
	{
		Name:        "FinancialLLM",
		Category:    CategoryFinancial,
		Description: "Financial market pages: tickers, quotes, company figures.",
		Version:     "1.0.0",
		Instruction: "Extract financial market data from the page: the ticker symbol, company name, latest price, percentage change, and any reported fundamentals. Numbers are plain, without currency symbols or thousands separators.",
		Schema: objSchema([]string{"symbol"}, map[string]any{
			"symbol":         prop("string", "Ticker symbol"),
			"company":        prop("string", "Company name"),
			"price":          prop("number", "Latest traded price"),
			"change_percent": prop("number", "Price change in percent"),
			"market_cap":     prop("number", "Market capitalization"),
			"pe_ratio":       prop("number", "Price/earnings ratio"),
			"headline":       prop("string", "Page headline if present"),
			"period":         prop("string", "Reporting period for fundamentals"),
		}),
	},
	{
		Name:        "AcademicLLM",
		Category:    CategoryAcademic,
		Description: "Academic papers and abstracts: title, authors, DOI, venue.",
		Version:     "1.0.0",
		Instruction: "Extract the academic publication from the page: title, author list, abstract, DOI, venue, and keywords.",
		Schema: objSchema([]string{"title"}, map[string]any{
			"title":        prop("string", "Paper title"),
			"authors":      arrayOf("string", "Author names in order"),
			"abstract":     prop("string", "Abstract text"),
			"doi":          prop("string", "Digital object identifier"),
			"published_at": prop("string", "Publication date"),
			"journal":      prop("string", "Journal or venue"),
			"keywords":     arrayOf("string", "Stated keywords"),
			"citations":    prop("integer", "Citation count if shown"),
		}),
	},
	{
		Name:        "NFTLLM",
		Category:    CategoryNFT,
		Description: "NFT collection and item pages: collection, floor price, volume.",
		Version:     "1.0.0",
		Instruction: "Extract NFT market data from the page: the collection name, item name if the page is a single item, floor price with currency, trading volume, and supply figures.",
		Schema: objSchema([]string{"collection"}, map[string]any{
			"collection":  prop("string", "Collection name"),
			"name":        prop("string", "Item name for single-item pages"),
			"floor_price": prop("number", "Floor price as a plain number"),
			"currency":    prop("string", "Price currency, e.g. ETH"),
			"volume_24h":  prop("number", "24-hour trading volume"),
			"owners":      prop("integer", "Distinct owner count"),
			"items":       prop("integer", "Total items in the collection"),
			"marketplace": prop("string", "Marketplace name"),
		}),
	},
	{
		Name:        "GeneralLLM",
		Category:    CategoryGeneral,
		Description: "Fallback for uncategorized pages: title, description, main content.",
		Version:     "1.0.0",
		Instruction: "Extract the page's title, a one-paragraph description, the main textual content, and any prominent outbound links.",
		Schema: objSchema(nil, map[string]any{
			"title":        prop("string", "Page title"),
			"description":  prop("string", "One-paragraph description"),
			"main_content": prop("string", "Main textual content"),
			"links":        arrayOf("string", "Prominent outbound links"),
			"published_at": prop("string", "Publication timestamp if stated"),
		}),
	},
}

// BuiltinLoader registers the compiled-in catalog. Each constructor merges
// caller config over the catalog definition, so builtins double as bases
// for ad-hoc overrides.
func BuiltinLoader(f *Factory) Loader {
	return func(r *Registry) error {
		var firstErr error
		for _, def := range builtinCatalog {
			err := r.Register(Metadata{
				Name:         def.Name,
				Description:  def.Description,
				Category:     def.Category,
				Version:      def.Version,
				OutputSchema: def.Schema,
				ConfigSchema: DeriveConfigSchema(&LLMParams{}),
				Source:       "builtin:" + def.Name,
			}, llmConstructor(f, def.Name, def.Category, def.Version, LLMParams{
				Instruction: def.Instruction,
				Schema:      def.Schema,
			}))
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
}

// llmConstructor builds the registry constructor for an LLM strategy
// definition: caller config overlays the definition's params.
func llmConstructor(f *Factory, name, category, version string, base LLMParams) Constructor {
	return func(cfg map[string]any) (Strategy, error) {
		overlay, err := DecodeLLMParams(cfg)
		if err != nil {
			return nil, err
		}
		return f.BuildLLM(name, category, version, base.merge(overlay))
	}
}
