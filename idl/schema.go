package idl

// Avro schemas for the batch record types. The field layout is shared with
// the ingestion servers, so changing any of these is a wire format change
// for every aggregation participant.

const ingestionHeaderSchema = `{
  "type": "record",
  "name": "IngestionHeader",
  "namespace": "com.winstrom.prio.v1",
  "fields": [
    {"name": "batch_uuid", "type": "string"},
    {"name": "name", "type": "string"},
    {"name": "bins", "type": "int"},
    {"name": "epsilon", "type": "double"},
    {"name": "prime", "type": "long"},
    {"name": "number_of_servers", "type": "int"},
    {"name": "hamming_weight", "type": ["null", "int"], "default": null},
    {"name": "batch_start_time", "type": "long"},
    {"name": "batch_end_time", "type": "long"}
  ]
}`

const ingestionDataSharePacketSchema = `{
  "type": "record",
  "name": "IngestionDataSharePacket",
  "namespace": "com.winstrom.prio.v1",
  "fields": [
    {"name": "uuid", "type": "string"},
    {"name": "encrypted_payload", "type": "bytes"},
    {"name": "encryption_key_id", "type": "string"},
    {"name": "r_pit", "type": "long"},
    {"name": "version_configuration", "type": ["null", "string"], "default": null},
    {"name": "device_nonce", "type": ["null", "bytes"], "default": null}
  ]
}`

const batchSignatureSchema = `{
  "type": "record",
  "name": "BatchSignature",
  "namespace": "com.winstrom.prio.v1",
  "fields": [
    {"name": "batch_header_signature", "type": "bytes"},
    {"name": "signature_of_packets", "type": "bytes"}
  ]
}`

const validationHeaderSchema = `{
  "type": "record",
  "name": "ValidationHeader",
  "namespace": "com.winstrom.prio.v1",
  "fields": [
    {"name": "batch_uuid", "type": "string"},
    {"name": "name", "type": "string"},
    {"name": "bins", "type": "int"},
    {"name": "epsilon", "type": "double"},
    {"name": "prime", "type": "long"},
    {"name": "number_of_servers", "type": "int"},
    {"name": "hamming_weight", "type": ["null", "int"], "default": null}
  ]
}`

const validationPacketSchema = `{
  "type": "record",
  "name": "ValidationPacket",
  "namespace": "com.winstrom.prio.v1",
  "fields": [
    {"name": "uuid", "type": "string"},
    {"name": "f_r", "type": "long"},
    {"name": "g_r", "type": "long"},
    {"name": "h_r", "type": "long"}
  ]
}`
