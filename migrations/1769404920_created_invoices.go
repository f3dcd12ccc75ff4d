package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "pbc_1687431684",
			"name": "invoices",
			"type": "base",
			"system": false,
			"listRule": "user = @request.auth.id",
			"viewRule": "user = @request.auth.id",
			"createRule": null,
			"updateRule": null,
			"deleteRule": null,
			"indexes": [
				"CREATE UNIQUE INDEX idx_invoices_transaction_id ON invoices (transaction_id) WHERE transaction_id != ''",
				"CREATE INDEX idx_invoices_user_status ON invoices (user, status)"
			],
			"fields": [
				{
					"id": "text3208210256",
					"name": "id",
					"type": "text",
					"system": true,
					"required": true,
					"primaryKey": true,
					"autogeneratePattern": "[a-z0-9]{15}",
					"pattern": "^[a-z0-9]+$",
					"min": 15,
					"max": 15,
					"presentable": false,
					"hidden": false
				},
				{
					"id": "relation2375276105",
					"name": "user",
					"type": "relation",
					"system": false,
					"required": true,
					"presentable": false,
					"hidden": false,
					"collectionId": "_pb_users_auth_",
					"cascadeDelete": false,
					"minSelect": 0,
					"maxSelect": 1
				},
				{
					"id": "relation1001261735",
					"name": "event",
					"type": "relation",
					"system": false,
					"required": false,
					"presentable": false,
					"hidden": false,
					"collectionId": "pbc_2602490748",
					"cascadeDelete": false,
					"minSelect": 0,
					"maxSelect": 1
				},
				{
					"id": "text2363381545",
					"name": "event_name",
					"type": "text",
					"system": false,
					"required": false,
					"presentable": true,
					"hidden": false,
					"min": 0,
					"max": 0,
					"pattern": ""
				},
				{
					"id": "text3543646544",
					"name": "place",
					"type": "text",
					"system": false,
					"required": false,
					"presentable": false,
					"hidden": false,
					"min": 0,
					"max": 0,
					"pattern": ""
				},
				{
					"id": "date1268273910",
					"name": "event_time",
					"type": "date",
					"system": false,
					"required": false,
					"presentable": false,
					"hidden": false,
					"min": "",
					"max": ""
				},
				{
					"id": "text2392944706",
					"name": "amount",
					"type": "text",
					"system": false,
					"required": true,
					"presentable": false,
					"hidden": false,
					"min": 0,
					"max": 0,
					"pattern": ""
				},
				{
					"id": "select2063623452",
					"name": "status",
					"type": "select",
					"system": false,
					"required": true,
					"presentable": false,
					"hidden": false,
					"maxSelect": 1,
					"values": ["pending", "paid", "failed", "cancelled"]
				},
				{
					"id": "text1462088193",
					"name": "transaction_id",
					"type": "text",
					"system": false,
					"required": false,
					"presentable": false,
					"hidden": false,
					"min": 0,
					"max": 0,
					"pattern": ""
				},
				{
					"id": "date3962467518",
					"name": "paid_at",
					"type": "date",
					"system": false,
					"required": false,
					"presentable": false,
					"hidden": false,
					"min": "",
					"max": ""
				},
				{
					"id": "text1146066909",
					"name": "sender_name",
					"type": "text",
					"system": false,
					"required": false,
					"presentable": false,
					"hidden": false,
					"min": 0,
					"max": 0,
					"pattern": ""
				},
				{
					"id": "text3182418120",
					"name": "confirmed_amount",
					"type": "text",
					"system": false,
					"required": false,
					"presentable": false,
					"hidden": false,
					"min": 0,
					"max": 0,
					"pattern": ""
				},
				{
					"id": "text2674744040",
					"name": "receipt_date",
					"type": "text",
					"system": false,
					"required": false,
					"presentable": false,
					"hidden": false,
					"min": 0,
					"max": 0,
					"pattern": ""
				},
				{
					"id": "text3257917790",
					"name": "receiver",
					"type": "text",
					"system": false,
					"required": false,
					"presentable": false,
					"hidden": false,
					"min": 0,
					"max": 0,
					"pattern": ""
				},
				{
					"id": "autodate2990389176",
					"name": "created",
					"type": "autodate",
					"system": false,
					"presentable": false,
					"hidden": false,
					"onCreate": true,
					"onUpdate": false
				},
				{
					"id": "autodate3332085495",
					"name": "updated",
					"type": "autodate",
					"system": false,
					"presentable": false,
					"hidden": false,
					"onCreate": true,
					"onUpdate": true
				}
			]
		}`

		collection := &core.Collection{}
		if err := json.Unmarshal([]byte(jsonData), &collection); err != nil {
			return err
		}

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("pbc_1687431684")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
