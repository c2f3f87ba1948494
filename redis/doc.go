// Package redis is the shared layer of the response cache: a thin go-redis
// client plus JSONStore, which keeps one JSON document per cache key.
//
//	client, err := redis.Connect(ctx, redis.Config{URL: "redis://localhost:6379/0"}, log)
//	store := redis.NewJSONStore[llm.Response](client, "")
//	_ = store.Save(ctx, key, resp, time.Hour)
//	cached, err := store.Load(ctx, key) // nil, nil on a miss
package redis
