package record

// FieldNames lists the canonical SMDR field names (37 items) in wire order.
// The core never interprets fields; the names exist so consumers can label
// columns or address fields by position in filter expressions.
// FieldNames 按线路顺序列出规范的 SMDR 字段名（37 项）。
// 内核不会解释字段；这些名称供消费者标注列或在过滤表达式中按位置取值。
var FieldNames = []string{
	"call_start_time",
	"connected_time",
	"ring_time",
	"caller",
	"direction",
	"called_number",
	"dialed_number",
	"account_code",
	"is_internal",
	"call_id",
	"continuation",
	"party1_device",
	"party1_name",
	"party2_device",
	"party2_name",
	"hold_time",
	"park_time",
	"authorization_valid",
	"authorization_code",
	"user_charged",
	"call_charge",
	"currency",
	"amount_at_last_user_change",
	"call_units",
	"units_at_last_user_change",
	"cost_per_unit",
	"mark_up",
	"external_targeting_cause",
	"external_targeter_id",
	"external_targeted_number",
	"calling_party_server_ip_address",
	"unique_call_id_caller_extension",
	"called_party_server_ip_address",
	"unique_call_id_called_extension",
	"smdr_record_time",
	"caller_consent_directive",
	"calling_number_verification",
}
