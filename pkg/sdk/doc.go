// Package cardex embeds the cardex card catalog in a Go program: the same
// loader, local store and search engine the cardex server runs, without the
// HTTP layer.
//
//	client, _ := cardex.New(ctx,
//	    cardex.WithSQLite("data/cards.db"),
//	    cardex.WithHTTPFeed("https://cards.example.com/feed/"),
//	)
//	defer client.Close()
//
//	_, _ = client.Load(ctx, nil)
//	page, _ := client.Query("t:goblin cmc<=2").SortBy(cardex.SortCMC).Take(20).Do(ctx)
//
// Searches issued before the first Load completes wait for it.
package cardex
