package search

import (
	"context"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"
)

type ClientConfig struct {
	URL      string
	User     string
	Password string
}

func NewClient(ctx context.Context, cfg ClientConfig) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("es: new client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("es: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("es: info: %s: %s", res.Status(), body)
	}
	return client, nil
}
