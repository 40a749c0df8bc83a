package mongo

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionUsers      = "users"
	collectionVillages   = "villages"
	collectionOutages    = "outages"
	collectionDeliveries = "deliveries"
)

func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		collectionUsers: {
			{Keys: bson.D{{Key: "mobile", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "village_id", Value: 1}, {Key: "active", Value: 1}, {Key: "sms_enabled", Value: 1}}},
		},
		collectionVillages: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		collectionOutages: {
			{Keys: bson.D{{Key: "village_id", Value: 1}, {Key: "resolved", Value: 1}, {Key: "start_time", Value: -1}}},
			{Keys: bson.D{{Key: "resolved", Value: 1}, {Key: "resolved_time", Value: -1}}},
			{Keys: bson.D{{Key: "start_time", Value: -1}}},
		},
		collectionDeliveries: {
			{Keys: bson.D{{Key: "outage_id", Value: 1}, {Key: "at", Value: 1}}},
			{Keys: bson.D{{Key: "job_id", Value: 1}}},
		},
	}
}
