package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "pbc_2602490748",
			"name": "events",
			"type": "base",
			"system": false,
			"listRule": "",
			"viewRule": "",
			"createRule": null,
			"updateRule": null,
			"deleteRule": null,
			"indexes": [
				"CREATE UNIQUE INDEX idx_events_name ON events (name)"
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
					"id": "text1579384326",
					"name": "name",
					"type": "text",
					"system": false,
					"required": true,
					"presentable": true,
					"hidden": false,
					"min": 0,
					"max": 0,
					"pattern": ""
				},
				{
					"id": "text3543646543",
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
					"id": "date2862495610",
					"name": "starts_at",
					"type": "date",
					"system": false,
					"required": false,
					"presentable": false,
					"hidden": false,
					"min": "",
					"max": ""
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
		collection, err := app.FindCollectionByNameOrId("pbc_2602490748")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
