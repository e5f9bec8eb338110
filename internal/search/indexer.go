// internal/search/indexer.go

// Package search mirrors harvested reviews into Elasticsearch so they
// are queryable by text the moment a run finishes.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"resto-harvester/internal/common/database"
	"resto-harvester/internal/common/errors"
	"resto-harvester/internal/common/logger"
	"resto-harvester/internal/models"
)

// Indexer bulk-writes reviews to one index, keyed by review id so
// re-harvested reviews overwrite instead of duplicating.
type Indexer struct {
	es     *database.ElasticsearchClient
	logger logger.Logger
	index  string
}

func NewIndexer(es *database.ElasticsearchClient, log logger.Logger, index string) *Indexer {
	if index == "" {
		index = "reviews"
	}
	return &Indexer{es: es, logger: log, index: index}
}

// IndexReviews bulk-indexes a batch of reviews. A batch with item
// failures reports how many documents were rejected; transport errors
// fail the whole batch.
func (i *Indexer) IndexReviews(ctx context.Context, reviews []models.Review) error {
	if len(reviews) == 0 {
		return nil
	}

	body, err := i.bulkBody(reviews)
	if err != nil {
		return errors.NewIndexBulkFailedError(i.index, err)
	}

	res, err := i.es.Client.Bulk(
		bytes.NewReader(body),
		i.es.Client.Bulk.WithContext(ctx),
		i.es.Client.Bulk.WithIndex(i.index),
	)
	if err != nil {
		return errors.NewIndexBulkFailedError(i.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewIndexBulkFailedError(i.index, fmt.Errorf("bulk request failed: %s", res.Status()))
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.NewIndexBulkFailedError(i.index, err)
	}

	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return errors.NewIndexBulkFailedError(i.index, err)
	}

	if result.Errors {
		failed := 0
		for _, item := range result.Items {
			for _, op := range item {
				if op.Status >= 300 {
					failed++
				}
			}
		}
		return errors.NewIndexBulkFailedError(i.index,
			fmt.Errorf("%d of %d documents rejected", failed, len(reviews)))
	}

	i.logger.Info("Indexed reviews", map[string]interface{}{
		"index": i.index,
		"count": len(reviews),
	})
	return nil
}

func (i *Indexer) bulkBody(reviews []models.Review) ([]byte, error) {
	var buf bytes.Buffer
	for _, review := range reviews {
		action := map[string]map[string]string{
			"index": {"_id": review.ReviewID},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return nil, err
		}
		if err := json.NewEncoder(&buf).Encode(review); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
