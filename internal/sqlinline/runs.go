package sqlinline

const QCreateRunsTable = `--sql 10f3e98b-1c20-4328-b0e0-964d426d2c17
create table if not exists generation_runs (
  id            text primary key,
  request_id    text not null default '',
  mode          text not null,
  edit_prompt   text not null default '',
  scene_prompt  text not null default '',
  status        text not null,
  error_kind    text not null default '',
  error_message text not null default '',
  started_at_ms bigint not null,
  duration_ms   bigint not null
);
`

const QInsertRun = `--sql 8749f46b-956f-45e6-b02e-a4c982616eda
insert into generation_runs(
  id,
  request_id,
  mode,
  edit_prompt,
  scene_prompt,
  status,
  error_kind,
  error_message,
  started_at_ms,
  duration_ms
) values (
  $1::text,
  $2::text,
  $3::text,
  $4::text,
  $5::text,
  $6::text,
  $7::text,
  $8::text,
  $9::bigint,
  $10::bigint
)
on conflict (id) do nothing;
`

const QListRecentRuns = `--sql 57d38aba-b2fb-4e30-b938-5195a749ee5f
select
  id,
  request_id,
  mode,
  edit_prompt,
  scene_prompt,
  status,
  error_kind,
  error_message,
  started_at_ms,
  duration_ms
from generation_runs
where ($2::text = '' or status = $2::text)
order by started_at_ms desc
limit $1::int;
`

const QGetRun = `--sql 44a473a4-2fea-4668-affb-ae71bfb88f22
select
  id,
  request_id,
  mode,
  edit_prompt,
  scene_prompt,
  status,
  error_kind,
  error_message,
  started_at_ms,
  duration_ms
from generation_runs
where id = $1::text
limit 1;
`
